package main

import (
	"fmt"
	"strings"

	"github.com/harunnryd/sift/internal/mail"
	"github.com/harunnryd/sift/internal/priority"

	"github.com/spf13/cobra"
)

var priorityCmd = &cobra.Command{
	Use:   "priority",
	Short: "Priority rule engine",
}

var priorityAdjustCmd = &cobra.Command{
	Use:   "adjust",
	Short: "Apply VIP and keyword rules to a predicted label",
	Long:  `Runs the rule engine over a label and message metadata using the saved preferences, or only the --vip and --keyword flags when --no-prefs is set.`,
	Example: `  sift priority adjust --label routine --from boss@corp.com --subject "Quarterly review"
  sift priority adjust --label low --subject "server down" --no-prefs --keyword urgent=down`,
	RunE: func(cmd *cobra.Command, args []string) error {
		labelFlag, _ := cmd.Flags().GetString("label")
		label, ok := priority.ParseLabel(labelFlag)
		if !ok {
			return fmt.Errorf("unknown label %q (want one of %v)", labelFlag, priority.Labels())
		}

		from, _ := cmd.Flags().GetString("from")
		subject, _ := cmd.Flags().GetString("subject")
		confidence, _ := cmd.Flags().GetFloat64("confidence")

		rules, err := adjustRules(cmd)
		if err != nil {
			return err
		}

		pred := priority.Prediction{
			Label:      label,
			Confidence: confidence,
			Metadata: priority.Metadata{
				FromAddress: from,
				Subject:     subject,
				IsReply:     strings.HasPrefix(strings.ToLower(subject), "re:"),
				IsForward:   strings.HasPrefix(strings.ToLower(subject), "fwd:"),
			},
		}

		adjusted := priority.Adjust(pred, rules)
		if adjusted == label {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (unchanged)\n", adjusted)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (was %s)\n", adjusted, label)
		}
		return nil
	},
}

func adjustRules(cmd *cobra.Command) (priority.Preferences, error) {
	rules := priority.Preferences{PriorityKeywords: map[priority.Label][]string{}}

	noPrefs, _ := cmd.Flags().GetBool("no-prefs")
	if !noPrefs {
		if cfg == nil {
			return rules, fmt.Errorf("config not loaded")
		}
		err := withPreferences(cfg.Mail, func(prefs *mail.PreferencesStore) error {
			rules = prefs.Get().Rules()
			return nil
		})
		if err != nil {
			return rules, err
		}
		if rules.PriorityKeywords == nil {
			rules.PriorityKeywords = map[priority.Label][]string{}
		}
	}

	vips, _ := cmd.Flags().GetStringSlice("vip")
	rules.VIPSenders = append(rules.VIPSenders, vips...)

	keywords, _ := cmd.Flags().GetStringSlice("keyword")
	for _, kv := range keywords {
		name, word, ok := strings.Cut(kv, "=")
		label, valid := priority.ParseLabel(name)
		if !ok || !valid || word == "" {
			return rules, fmt.Errorf("invalid keyword %q (want <label>=<word>)", kv)
		}
		rules.PriorityKeywords[label] = append(rules.PriorityKeywords[label], strings.ToLower(word))
	}

	return rules, nil
}

func init() {
	priorityAdjustCmd.Flags().String("label", string(priority.Routine), "predicted label")
	priorityAdjustCmd.Flags().Float64("confidence", 0.5, "prediction confidence")
	priorityAdjustCmd.Flags().String("from", "", "sender address")
	priorityAdjustCmd.Flags().String("subject", "", "message subject")
	priorityAdjustCmd.Flags().StringSlice("vip", nil, "extra VIP sender substring (repeatable)")
	priorityAdjustCmd.Flags().StringSlice("keyword", nil, "extra keyword as <label>=<word> (repeatable)")
	priorityAdjustCmd.Flags().Bool("no-prefs", false, "ignore the saved preferences file")

	priorityCmd.AddCommand(priorityAdjustCmd)
	rootCmd.AddCommand(priorityCmd)
}
