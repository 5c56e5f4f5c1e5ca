// Command appraise runs the valuation pipeline for a single lead form saved
// as JSON, without persisting it or sending email.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joelkehle/propertylead/internal/app"
	"github.com/joelkehle/propertylead/internal/config"
	"github.com/joelkehle/propertylead/internal/leads"
	"github.com/joelkehle/propertylead/internal/propertydata"
	"github.com/joelkehle/propertylead/internal/valuation"
)

var (
	flagLookup   bool
	flagSeller   bool
	flagInternal bool
	flagJSON     bool
	flagTimeout  time.Duration
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "appraise <form.json|->",
	Short: "Appraise a property lead form",
	Long: `Appraise reads a lead form (the same JSON the website posts), optionally
looks the address up with the configured property data provider, asks the
configured model for a valuation and prints the seller and internal messages.

Examples:
  appraise lead.json
  appraise lead.json --lookup --internal
  cat lead.json | appraise - --json`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runAppraise,
}

func init() {
	rootCmd.Flags().BoolVar(&flagLookup, "lookup", false, "Enrich with the configured property data provider")
	rootCmd.Flags().BoolVar(&flagSeller, "seller", false, "Print only the seller message")
	rootCmd.Flags().BoolVar(&flagInternal, "internal", false, "Print only the internal report")
	rootCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the parsed valuation result as JSON")
	rootCmd.Flags().DurationVar(&flagTimeout, "timeout", 2*time.Minute, "Overall timeout")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log pipeline progress to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runAppraise(cmd *cobra.Command, args []string) error {
	if flagSeller && flagInternal {
		return errors.New("--seller and --internal are mutually exclusive")
	}
	form, err := readForm(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	if flagVerbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return err
		}
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	cfg.CaptchaDisabled = true
	if !flagLookup {
		cfg.PropertyProvider = config.ProviderNone
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()

	appraiser, err := app.Appraiser(ctx, cfg, logger)
	if err != nil {
		return err
	}

	rec, lookupErr := app.Provider(cfg, logger).Lookup(ctx, form.Address())
	if errors.Is(lookupErr, propertydata.ErrNoData) {
		rec, lookupErr = nil, nil
	} else if lookupErr != nil {
		logger.Warn("property lookup failed", zap.Error(lookupErr))
		rec = nil
	}

	msgs := appraiser.Appraise(ctx, form, rec, lookupErr)
	return printMessages(cmd.OutOrStdout(), msgs)
}

func readForm(stdin io.Reader, path string) (leads.Form, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var form leads.Form
	if err := json.NewDecoder(r).Decode(&form); err != nil {
		return nil, fmt.Errorf("decode form: %w", err)
	}
	if form == nil {
		return nil, errors.New("form must be a JSON object")
	}
	return form.Without(leads.CaptchaField), nil
}

func printMessages(w io.Writer, msgs valuation.Messages) error {
	if flagJSON {
		if msgs.Result == nil {
			return fmt.Errorf("valuation failed: %v", msgs.Err)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(msgs.Result)
	}
	switch {
	case flagSeller:
		_, err := fmt.Fprintln(w, msgs.Seller)
		return err
	case flagInternal:
		_, err := fmt.Fprintln(w, msgs.Internal)
		return err
	}
	_, err := fmt.Fprintf(w, "Subject: %s\n\n%s\n\n----------------------------------------\n\nSubject: %s\n\n%s\n",
		valuation.SellerSubject, msgs.Seller, valuation.InternalSubject, msgs.Internal)
	return err
}
