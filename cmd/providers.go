package cmd

import (
	"fmt"
	"sort"

	"github.com/sai-cli/sai-cli/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "providers",
		Short: "List configured providers and models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("run 'sai init' first: %w", err)
			}

			names := make([]string, 0, len(cfg.Providers))
			for name := range cfg.Providers {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				p := cfg.Providers[name]
				kind := p.Type
				if kind == "" {
					kind = "openai"
				}
				fmt.Println(sInfo.Render(name) + sFaint.Render(" ("+kind+")"))
				for _, m := range p.Models {
					ref := name + "/" + m
					if ref == cfg.DefaultModel {
						fmt.Println(sOK.Render("  ▶ ") + ref + sFaint.Render("  (default)"))
					} else {
						fmt.Println("    " + ref)
					}
				}
			}
			if len(names) == 0 {
				fmt.Println(sFaint.Render("no providers configured"))
			}
			return nil
		},
	})
}
