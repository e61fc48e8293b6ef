package main

import (
	"venom/internal/client"
	"venom/internal/ui/optimizer"
	"venom/internal/ui/projects"
	"venom/internal/ui/shell"
	"venom/internal/ui/skills"
)

// panelFactories maps each view to its panel constructor. Every panel gets
// its own client rooted at the API base the shell hands it.
func panelFactories(newClient func(apiBase string) *client.Client, style string) map[shell.View]shell.PanelFactory {
	var opts []optimizer.Option
	if style != "" {
		opts = append(opts, optimizer.WithStyle(style))
	}
	return map[shell.View]shell.PanelFactory{
		shell.ViewSkills: func(apiBase string) shell.Panel {
			return skills.NewSkillsModel(newClient(apiBase))
		},
		shell.ViewProjects: func(apiBase string) shell.Panel {
			return projects.NewProjectsModel(newClient(apiBase))
		},
		shell.ViewOptimizer: func(apiBase string) shell.Panel {
			return optimizer.NewOptimizerModel(newClient(apiBase), opts...)
		},
	}
}
