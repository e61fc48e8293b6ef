package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"venom/internal/api"
)

func newSkillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skill",
		Short: "Upload and activate skill code",
	}
	cmd.AddCommand(newSkillUploadCmd(), newSkillActivateCmd())
	return cmd
}

func newSkillUploadCmd() *cobra.Command {
	var name, version, testsPath string
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a Python skill and run its tests in the sandbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			code, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read skill code: %w", err)
			}
			in := api.UploadIn{Name: name, Version: version, Code: string(code)}
			if testsPath != "" {
				data, err := os.ReadFile(testsPath)
				if err != nil {
					return fmt.Errorf("read tests: %w", err)
				}
				if err := json.Unmarshal(data, &in.Tests); err != nil {
					return fmt.Errorf("parse tests: %w", err)
				}
			}
			c := clientFactory(cfg, cfg.Origin(), zap.NewNop())(cfg.APIBase)
			out, err := c.UploadSkill(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("failed to upload skill: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s\nscore: %.2f ok: %t\n", out.UploadFile, out.Result.Score, out.Result.OK)
			if out.Result.Error != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "error: %s\n", out.Result.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Skill name")
	cmd.Flags().StringVar(&version, "version", "", "Skill version (default 0.0.1)")
	cmd.Flags().StringVar(&testsPath, "tests", "", "JSON file with [{\"input\":...,\"expected\":...}]")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newSkillActivateCmd() *cobra.Command {
	var name, version string
	cmd := &cobra.Command{
		Use:   "activate UPLOAD_PATH",
		Short: "Activate an uploaded skill file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			c := clientFactory(cfg, cfg.Origin(), zap.NewNop())(cfg.APIBase)
			out, err := c.ActivateSkill(cmd.Context(), api.ActivateIn{
				Name: name, Version: version, SourceUploadPath: args[0],
			})
			if err != nil {
				return fmt.Errorf("failed to activate skill: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "activated %s %s -> %s (%s)\n", out.Meta.Name, out.Meta.Version, out.Path, out.Meta.Hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Skill name")
	cmd.Flags().StringVar(&version, "version", "", "Skill version")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}
