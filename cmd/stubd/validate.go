package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/getstubd/stubd/pkg/config"
)

func newValidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate [stub-file-or-dir...]",
		Short: "Validate config and stub mapping files without starting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" && len(args) == 0 {
				return fmt.Errorf("nothing to validate: pass --config and/or stub paths")
			}

			failed := false
			if configPath != "" {
				if _, err := config.Load(configPath); err != nil {
					fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", configPath, err)
					failed = true
				} else {
					fmt.Printf("OK   %s\n", configPath)
				}
			}

			for _, path := range args {
				if err := validateStubPath(path); err != nil {
					fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", path, err)
					failed = true
				} else {
					fmt.Printf("OK   %s\n", path)
				}
			}

			if failed {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML or JSON)")
	return cmd
}

func validateStubPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		_, err := config.LoadStubFile(path)
		return err
	}

	_, fileErrs, err := config.NewDirLoader(path, nil).Load()
	if err != nil {
		return err
	}
	if len(fileErrs) > 0 {
		for _, fe := range fileErrs {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", fe.Path, fe.Err)
		}
		return fmt.Errorf("%d file(s) failed", len(fileErrs))
	}
	return nil
}
