package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/automeet/automeet/cmd/state"
	"github.com/automeet/automeet/errext"
	"github.com/automeet/automeet/errext/exitcodes"
	"github.com/automeet/automeet/event"
	"github.com/automeet/automeet/internal/agent"
	"github.com/automeet/automeet/internal/api"
	v1 "github.com/automeet/automeet/internal/api/v1"
	"github.com/automeet/automeet/internal/browser"
	"github.com/automeet/automeet/internal/build"
	"github.com/automeet/automeet/internal/redirect"
	"github.com/automeet/automeet/internal/speech"
	"github.com/automeet/automeet/internal/store"
)

// cmdRun handles the `automeet run` sub-command: the daemon itself.
type cmdRun struct {
	gs *state.GlobalState
}

func (c *cmdRun) flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false

	flags.String("store", "",
		"store backend URL, either file=<path> or redis://host:port/db,"+
			" the default is a file store at the --config path")
	flags.String("browser-address", "",
		"DevTools address of a running browser (default "+browser.DefaultAddress+")")
	flags.String("browser-exec", "",
		"launch this browser binary instead of attaching to a running one")
	flags.String("browser-user-data-dir", "", "profile directory for a launched browser")
	flags.Bool("headless", false, "launch the browser without a visible window")

	return flags
}

func browserConfigFromFlags(flags *pflag.FlagSet) browser.Config {
	return browser.Config{
		Address:     getNullString(flags, "browser-address"),
		ExecPath:    getNullString(flags, "browser-exec"),
		UserDataDir: getNullString(flags, "browser-user-data-dir"),
		Headless:    getNullBool(flags, "headless"),
	}
}

func (c *cmdRun) run(cmd *cobra.Command, _ []string) error {
	logger := c.gs.Logger
	runCtx, runCancel := context.WithCancel(c.gs.Ctx)
	defer runCancel()

	browserConf, err := browser.GetConsolidatedConfig(browserConfigFromFlags(cmd.Flags()), c.gs.Env)
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}

	storeURL := getNullString(cmd.Flags(), "store")
	if !storeURL.Valid {
		storeURL.String = c.gs.Env["AUTOMEET_STORE"]
	}

	st, err := store.New(runCtx, store.Params{
		URL:         storeURL.String,
		DefaultPath: c.gs.Flags.ConfigFilePath,
		FS:          c.gs.FS,
		Logger:      logger,
	})
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.StoreUnavailable)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.WithError(cerr).Warn("could not close the store cleanly")
		}
	}()

	events := event.NewSystem(logger)
	defer events.UnsubscribeAll()

	speechService := speech.New(speech.Params{Logger: logger, Events: events})
	if err := speechService.Start(); err != nil {
		return err
	}
	defer speechService.Stop()

	registry := agent.NewRegistry()
	var agentsWG sync.WaitGroup
	defer agentsWG.Wait()

	sup := browser.NewSupervisor(browser.SupervisorParams{
		Config: browserConf,
		Events: events,
		Logger: logger,
		OnTarget: func(targetCtx context.Context, page *browser.Page) {
			agentsWG.Add(1)
			defer agentsWG.Done()

			a := agent.New(agent.Params{
				Surface: page,
				Store:   st,
				Events:  events,
				Speaker: speechService,
				Logger:  logger,
				Env:     c.gs.Env,
			})
			registry.Add(a)
			defer registry.Remove(page.TargetID())
			a.Run(targetCtx)
		},
	})
	if err := sup.Start(runCtx); err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.BrowserUnreachable)
	}
	defer sup.Stop()

	stopSignals := handleDaemonSignals(c.gs, func(sig os.Signal) {
		logger.WithField("sig", sig).Debug("Stopping the daemon in response to a signal...")
		// The farewell event goes out before the contexts get cancelled, so
		// event stream clients see it instead of just a dropped connection.
		events.Emit(&event.Event{Type: event.Exit})
		runCancel()
	}, nil)
	defer stopSignals()

	apiWG := &sync.WaitGroup{}
	if c.gs.Flags.Address != "" {
		apiWG.Add(2)
		srv := api.GetServer(c.gs.Flags.Address, &v1.ControlSurface{
			RunCtx:  runCtx,
			Version: build.Version,
			Browser: browserConf.Description(),
			Store:   st,
			Events:  events,
			Agents:  registry,
			Speech:  speechService,
			Env:     c.gs.Env,
			Logger:  logger,
		})
		go func() {
			defer apiWG.Done()
			logger.Debugf("Starting the REST API server on %s", c.gs.Flags.Address)
			if aerr := srv.ListenAndServe(); aerr != nil && !errors.Is(aerr, http.ErrServerClosed) {
				// Only exit the whole daemon if the user explicitly asked for
				// this address; otherwise keep running without the API.
				if cmd.Flags().Lookup("address").Changed {
					logger.WithError(aerr).Error("Error from API server")
					c.gs.OSExit(int(exitcodes.CannotStartRESTAPI))
				} else {
					logger.WithError(aerr).Warn("Error from API server")
				}
			}
		}()
		go func() {
			defer apiWG.Done()
			<-runCtx.Done()
			_ = srv.Shutdown(context.Background())
		}()
	}

	coordinator := redirect.NewCoordinator(st, sup, logger)
	coordWG := &sync.WaitGroup{}
	coordWG.Add(1)
	go func() {
		defer coordWG.Done()
		coordinator.Run(runCtx)
	}()

	if !c.gs.Flags.Quiet {
		storeDesc := storeURL.String
		if storeDesc == "" {
			storeDesc = "file=" + c.gs.Flags.ConfigFilePath
		}
		printDaemonDescription(c.gs, daemonDescription{
			browser: browserConf.Description(),
			store:   storeDesc,
			speech:  speechService.Description(),
			api:     c.gs.Flags.Address,
		})
	}
	logger.Info("watching for Google Meet pages")

	<-runCtx.Done()

	logger.Debug("Waiting for everything to shut down...")
	coordWG.Wait()
	apiWG.Wait()
	return nil
}

func getCmdRun(gs *state.GlobalState) *cobra.Command {
	c := &cmdRun{gs: gs}

	exampleText := getExampleText(gs, `
  # Attach to the Chrome already running with --remote-debugging-port=9222
  {{.}} run

  # Launch a dedicated browser and keep the settings in Redis
  {{.}} run --browser-exec /usr/bin/google-chrome --store redis://localhost:6379/0`[1:])

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the companion daemon",
		Long: `Run the companion daemon.

It attaches to the browser over the DevTools protocol, watches for Google
Meet pages, and drives them: muting on join, joining waiting rooms with a
spoken countdown, and redirecting meeting links into the installed app
window. The REST API listens on the global --address.`,
		Example: exampleText,
		Args:    cobra.NoArgs,
		RunE:    c.run,
	}
	runCmd.Flags().SortFlags = false
	runCmd.Flags().AddFlagSet(c.flagSet())

	return runCmd
}
