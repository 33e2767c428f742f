package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/corrmatrix/internal/config"
	"github.com/KaramelBytes/corrmatrix/internal/server"
)

var (
	srvAddr        string
	srvCORSOrigins []string
	srvMaxBody     int64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP analysis service (POST /analysis, GET /health, GET /metrics)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		sc := serverConfig(c)
		f := cmd.Flags()
		if f.Changed("addr") && srvAddr != "" {
			sc.Addr = srvAddr
		}
		if f.Changed("cors-origins") {
			sc.CORSOrigins = srvCORSOrigins
		}
		if f.Changed("max-body") && srvMaxBody > 0 {
			sc.MaxBodyBytes = srvMaxBody
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		srv := server.New(sc, logger, reg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx)
	},
}

func serverConfig(c *cfgpkg.Global) server.Config {
	sc := server.DefaultConfig()
	if c.ListenAddr != "" {
		sc.Addr = c.ListenAddr
	}
	if len(c.CORSOrigins) > 0 {
		sc.CORSOrigins = c.CORSOrigins
	}
	if c.MaxBodyBytes > 0 {
		sc.MaxBodyBytes = c.MaxBodyBytes
	}
	r, w, i := c.Timeouts()
	if r > 0 {
		sc.ReadTimeout = r
	}
	if w > 0 {
		sc.WriteTimeout = w
	}
	if i > 0 {
		sc.IdleTimeout = i
	}
	sc.Analysis = c.AnalysisOptions()
	return sc
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address, e.g. :8081 (overrides config)")
	serveCmd.Flags().StringSliceVar(&srvCORSOrigins, "cors-origins", nil, "allowed CORS origins, '*' for any (overrides config)")
	serveCmd.Flags().Int64Var(&srvMaxBody, "max-body", 0, "maximum request body in bytes (overrides config)")
}
