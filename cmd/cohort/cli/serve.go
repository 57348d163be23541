package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/cohort/internal/curriculum"
	"github.com/felixgeelhaar/cohort/internal/guard"
	"github.com/felixgeelhaar/cohort/internal/natsbus"
	"github.com/felixgeelhaar/cohort/internal/scheduler"
	"github.com/felixgeelhaar/cohort/internal/web"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X".
var version = "dev"

var (
	servePort    int
	embeddedNATS bool
	scheduleCron string
	scheduleOnce bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the curriculum viewer and orchestration API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		cfg := a.cfg
		if cmd.Flags().Changed("port") {
			cfg.Web.Port = servePort
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		natsURL := cfg.NATS.URL
		if embeddedNATS || cfg.NATS.Embedded {
			bus, err := natsbus.New(cfg.NATS)
			if err != nil {
				a.obs.Log().Error().Err(err).Msg("Failed to start embedded NATS")
				return err
			}
			defer bus.Close()
			natsURL = bus.ClientURL()
			a.obs.Log().Info().Str("url", natsURL).Msg("embedded NATS started")
		}
		if natsURL != "" {
			client, err := natsbus.NewClientFromURL(natsURL)
			if err != nil {
				a.obs.Log().Error().Err(err).Msg("Failed to connect to NATS")
				return err
			}
			defer client.Close()
			natsbus.NewRelay(client, a.obs).Attach(a.orch.Bus())
			if _, err := natsbus.ServeTasks(ctx, client, a.orch); err != nil {
				return fmt.Errorf("subscribe %s: %w", natsbus.TopicTaskRequest, err)
			}
		}

		cur := curriculum.Default()
		if cfg.Curriculum.Structure != "" {
			if cur, err = curriculum.Load(cfg.Curriculum.Structure); err != nil {
				return err
			}
		}
		lib := curriculum.NewLibrary(cfg.Curriculum.Root, guard.New(cfg.Guard))

		if cfg.Schedule.Enabled {
			sched, err := scheduler.New(a.orch, cfg.Schedule, a.obs)
			if err != nil {
				return err
			}
			go sched.Start(ctx)
		}

		srv := web.NewServer(a.orch, cur, lib, cfg.Web, a.obs, version)
		fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://localhost:%d\n", cfg.Web.Port)
		return srv.Start(ctx)
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the content-improvement pipeline on a cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		sc := a.cfg.Schedule
		if scheduleCron != "" {
			sc.Cron = scheduleCron
		}
		if cmd.Flags().Changed("weeks") {
			sc.Weeks = weeksFlag
		}
		if len(sc.Weeks) == 0 {
			sc.Weeks = a.cfg.Pipeline.Weeks
		}

		sched, err := scheduler.New(a.orch, sc, a.obs)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if scheduleOnce {
			res, err := sched.RunOnce(ctx)
			printPipeline(cmd.OutOrStdout(), res)
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Next run: %s\n", sched.Next().Format("2006-01-02 15:04 MST"))
		sched.Start(ctx)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(serveCmd, scheduleCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 8000, "HTTP port")
	serveCmd.Flags().BoolVar(&embeddedNATS, "embedded-nats", false, "Start an embedded NATS server for the event relay")

	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "Cron expression (default from config)")
	scheduleCmd.Flags().IntSliceVar(&weeksFlag, "weeks", nil, "Curriculum weeks")
	scheduleCmd.Flags().BoolVar(&scheduleOnce, "once", false, "Run the pipeline once now and exit")
}
