package main

import (
	"fmt"
	"strings"

	"github.com/harunnryd/vibechat/internal/tool"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the agent can call",
	RunE: func(cmd *cobra.Command, args []string) error {
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		registry, err := buildToolRegistry(loadedCfg)
		if err != nil {
			return fmt.Errorf("failed to build tool registry: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), renderToolTable(registry.GetDescriptors()))
		return nil
	},
}

func renderToolTable(descriptors []tool.ToolDescriptor) string {
	if len(descriptors) == 0 {
		return "No tools registered"
	}

	purple := lipgloss.Color("99")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")

	headerStyle := lipgloss.NewStyle().Foreground(purple).Bold(true).Align(lipgloss.Center).Padding(0, 1)
	oddRowStyle := lipgloss.NewStyle().Foreground(gray).Padding(0, 1)
	evenRowStyle := lipgloss.NewStyle().Foreground(lightGray).Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(purple)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row%2 == 0:
				return evenRowStyle
			default:
				return oddRowStyle
			}
		}).
		Headers("Name", "Risk", "Network", "Capabilities", "Description")

	for _, d := range descriptors {
		network := "no"
		if d.Metadata.Network {
			network = "yes"
		}
		t.Row(
			d.Definition.Name,
			string(d.Metadata.Risk),
			network,
			strings.Join(d.Metadata.Capabilities, ", "),
			truncateString(d.Definition.Description, 48),
		)
	}

	return t.String()
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
