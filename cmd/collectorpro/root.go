package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	collectorpro "github.com/uxmeas/collectorpro-sub003"
	"github.com/uxmeas/collectorpro-sub003/topshot"
)

// run executes args and always tears the app down, also when the command fails.
func run(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) error {
	defer a.teardown()

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "collectorpro",
		Short:         "Query the CollectorPRO API with caching and retries",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "YAML config file")
	pf.StringVar(&a.flags.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	pf.StringVar(&a.flags.baseURL, "base-url", "", "API base URL (overrides config and "+envBaseURL+")")
	pf.DurationVar(&a.flags.timeout, "timeout", 10*time.Second, "per-attempt timeout")
	pf.IntVar(&a.flags.retries, "retries", 3, "retries after the first attempt")
	pf.BoolVar(&a.flags.debug, "debug", false, "log request, retry and cache activity")
	pf.StringVar(&a.flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	root.AddCommand(
		newVerbCmd(a, http.MethodGet),
		newVerbCmd(a, http.MethodPost),
		newVerbCmd(a, http.MethodPut),
		newVerbCmd(a, http.MethodDelete),
		newPortfolioCmd(a),
		newDashboardCmd(a),
		newVersionCmd(),
	)
	return root
}

func newVerbCmd(a *app, method string) *cobra.Command {
	var (
		data    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   strings.ToLower(method) + " ENDPOINT",
		Short: method + " an endpoint and print the JSON response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body interface{}
			if data != "" {
				if !json.Valid([]byte(data)) {
					return fmt.Errorf("--data is not valid JSON")
				}
				body = json.RawMessage(data)
			}

			var opts []collectorpro.RequestOption
			if noCache {
				opts = append(opts, collectorpro.WithCacheDisabled())
			}

			desc, err := a.client.NewRequest(method, args[0], body, opts...)
			if err != nil {
				return err
			}
			resp, err := a.client.Do(cmd.Context(), desc)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp.Body)
		},
	}

	if method == http.MethodPost || method == http.MethodPut {
		cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	}
	if method == http.MethodGet {
		cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the response cache")
	}
	return cmd
}

func newPortfolioCmd(a *app) *cobra.Command {
	var withMoments bool

	cmd := &cobra.Command{
		Use:   "portfolio ADDRESS",
		Short: "Show the portfolio of a Flow address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := topshot.NewService(a.client)
			res, err := svc.Portfolio(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !withMoments {
				return encodeJSON(cmd.OutOrStdout(), res.Data)
			}

			moments, err := svc.Moments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return encodeJSON(cmd.OutOrStdout(), struct {
				topshot.Portfolio
				Moments []topshot.Moment `json:"moments"`
			}{res.Data, moments.Data})
		},
	}
	cmd.Flags().BoolVar(&withMoments, "moments", false, "include the owned moments")
	return cmd
}

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard ADDRESS",
		Short: "Load portfolio, offers and watchlist in one go",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dash, err := topshot.NewService(a.client).Dashboard(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return encodeJSON(cmd.OutOrStdout(), dash)
		},
	}
}

func newVersionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON {
				return encodeJSON(cmd.OutOrStdout(), collectorpro.GetVersionInfo())
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), collectorpro.GetVersion())
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print version metadata as JSON")
	return cmd
}

func printJSON(w io.Writer, body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

func encodeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
