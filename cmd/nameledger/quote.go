package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"nameledger/internal/platform/config"
	"nameledger/internal/registry/models"
	"nameledger/internal/registry/pricing"
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a registration offline",
	Long: "Computes the fee for a name with the pricing engine alone. Base fee and\n" +
		"multiplier come from flags, falling back to the configured seed catalog.",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		tld, _ := cmd.Flags().GetString("tld")
		term, _ := cmd.Flags().GetInt("term")
		baseFee, _ := cmd.Flags().GetUint64("base-fee")
		multiplier, _ := cmd.Flags().GetUint64("multiplier")
		tld = strings.ToLower(tld)
		if err := models.CheckLabel("name", name); err != nil {
			return err
		}
		if err := models.CheckLabel("tld", tld); err != nil {
			return err
		}

		if baseFee == 0 || multiplier == 0 {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if baseFee == 0 {
				baseFee = cfg.Ledger.BaseFee
			}
			if multiplier == 0 {
				multiplier = seedMultiplier(cfg.Ledger.Tlds, tld)
			}
		}
		if multiplier == 0 {
			return fmt.Errorf("no multiplier for tld %q: pass --multiplier", tld)
		}

		fee, err := pricing.ComputeFee(models.Amount(baseFee), name, &models.TldEntry{TLD: tld, FeeMultiplier: multiplier}, term)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %d year(s)  %d\n", models.FullName(name, tld), term, fee)
		return nil
	},
}

func seedMultiplier(seeds []config.TldSeed, tld string) uint64 {
	for _, s := range seeds {
		if s.TLD == tld {
			return s.Multiplier
		}
	}
	return 0
}
