package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for mcconsole.

Bash:
  $ source <(mcconsole completion bash)

Zsh:
  $ mcconsole completion zsh > "${fpath[1]}/_mcconsole"

Fish:
  $ mcconsole completion fish > ~/.config/fish/completions/mcconsole.fish

PowerShell:
  PS> mcconsole completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Usage()
		}

		root := cmd.Root()
		out := cmd.OutOrStdout()

		switch args[0] {
		case "bash":
			return root.GenBashCompletionV2(out, true)
		case "zsh":
			return root.GenZshCompletion(out)
		case "fish":
			return root.GenFishCompletion(out, true)
		case "powershell":
			return root.GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List event type names",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range ValidEventTypeNames() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(typesCmd)
}

// completeEventTypes completes a comma-separated event type flag. Values
// already typed or already set on the flag are not offered again, and
// each candidate carries the typed prefix so every shell inserts it whole.
func completeEventTypes(flagName string) func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		parts := strings.Split(toComplete, ",")
		typed, current := parts[:len(parts)-1], parts[len(parts)-1]

		prefix := strings.Join(typed, ",")
		if prefix != "" {
			prefix += ","
		}
		current = strings.ToLower(strings.TrimSpace(current))

		used := slices.Clone(typed)
		if vals, err := cmd.Flags().GetStringSlice(flagName); err == nil {
			used = append(used, vals...)
		}
		for i, v := range used {
			used[i] = strings.ToLower(strings.TrimSpace(v))
		}

		var candidates []string
		for _, name := range ValidEventTypeNames() {
			if slices.Contains(used, name) || !strings.HasPrefix(name, current) {
				continue
			}
			candidates = append(candidates, prefix+name)
		}
		return candidates, cobra.ShellCompDirectiveNoSpace | cobra.ShellCompDirectiveNoFileComp
	}
}

// registerEventTypeCompletion registers completion for an event type flag.
func registerEventTypeCompletion(cmd *cobra.Command, flagName string) {
	_ = cmd.RegisterFlagCompletionFunc(flagName, completeEventTypes(flagName))
}
