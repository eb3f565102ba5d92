package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/czerwonk/netperf_monitor/config"
	"github.com/czerwonk/netperf_monitor/dashboard"
	"github.com/czerwonk/netperf_monitor/probe"
	"github.com/czerwonk/netperf_monitor/sampler"
	"github.com/czerwonk/netperf_monitor/series"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const version string = "0.1.0"

const shutdownTimeout = 10 * time.Second

var (
	showVersion         = kingpin.Flag("version", "Print version information").Default().Bool()
	listenAddress       = kingpin.Flag("web.listen-address", "Address on which to expose the dashboard and metrics").Default(":8050").String()
	metricsPath         = kingpin.Flag("web.telemetry-path", "Path under which to expose metrics").Default("/metrics").String()
	refreshInterval     = kingpin.Flag("web.refresh-interval", "Interval in which connected browsers refresh the dashboard").Default("5s").Duration()
	configFile          = kingpin.Flag("config.path", "Path to config file").Default("").String()
	sampleInterval      = kingpin.Flag("sample.interval", "Pause between two measurement cycles").Default("5s").Duration()
	sampleTimeout       = kingpin.Flag("sample.timeout", "Timeout for every single measurement (ping, server selection, download, upload)").Default("60s").Duration()
	pingTimeout         = kingpin.Flag("ping.timeout", "Timeout for ICMP echo request").Default("4s").Duration()
	pingSize            = kingpin.Flag("ping.size", "Payload size for ICMP echo requests").Default("56").Uint16()
	pingUnreachable     = kingpin.Flag("ping.unreachable", "What to do when the ping target does not answer. Valid choices: [zero, skip]").Default("zero").String()
	speedtestCandidates = kingpin.Flag("speedtest.candidates", "Number of nearest speedtest servers to ping when selecting the best one").Default("5").Int()
	dnsNameServer       = kingpin.Flag("dns.nameserver", "DNS server used to resolve the ping target").Default("").String()
	rttMode             = kingpin.Flag("metrics.rttunit", "Export latency as either millis (default), or seconds (best practice), or both. Valid choices: [ms, s, both]").Default("ms").String()
	logLevel            = kingpin.Flag("log.level", "Only log messages with the given severity or above. Valid levels: [debug, info, warn, error, fatal]").Default("info").String()
)

func main() {
	kingpin.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		kingpin.FatalUsage("could not load config.path: %v", err)
	}

	if mpath := cfg.Web.TelemetryPath; mpath == "" {
		log.Warnln("web.telemetry-path is empty, correcting to `/metrics`")
		cfg.Web.TelemetryPath = "/metrics"
	} else if mpath[0] != '/' {
		cfg.Web.TelemetryPath = "/" + mpath
	}

	if err := cfg.Validate(); err != nil {
		kingpin.FatalUsage("%v", err)
	}

	setLogLevel(cfg.Log.Level)

	if err := run(cfg); err != nil {
		log.Errorln(err)
		os.Exit(2)
	}
}

func printVersion() {
	fmt.Println("netperf-monitor")
	fmt.Printf("Version: %s\n", version)
	fmt.Println("Internet speed and latency monitor with a live web dashboard")
}

// run wires all components, blocks until a termination signal arrives or the
// web server fails, and shuts everything down in order.
func run(cfg *config.Config) error {
	policy, err := sampler.PolicyFromString(cfg.Ping.Unreachable)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Web.ListenAddress)
	if err != nil {
		return fmt.Errorf("cannot listen on %s: %w", cfg.Web.ListenAddress, err)
	}
	defer ln.Close()

	prober, err := probe.NewICMPProber(probe.ICMPOptions{
		Host:        probe.DefaultTarget,
		Timeout:     cfg.Ping.Timeout.Duration(),
		PayloadSize: cfg.Ping.Size,
		Resolver:    probe.NewResolver(cfg.DNS.Nameserver),
	})
	if err != nil {
		return fmt.Errorf("cannot start monitoring: %w", err)
	}
	defer prober.Close()

	store := series.NewStore()
	smp := sampler.New(store, prober, probe.NewSpeedtestMeter(cfg.Speedtest.Candidates),
		sampler.WithInterval(cfg.Sample.Interval.Duration()),
		sampler.WithTimeout(cfg.Sample.Timeout.Duration()),
		sampler.WithUnreachablePolicy(policy))

	if *configFile != "" {
		w, err := config.Watch(*configFile, func(c *config.Config) {
			applyConfigChange(c, smp)
		})
		if err != nil {
			log.Warnf("config file will not be reloaded: %v", err)
		} else {
			defer w.Close()
		}
	}

	smp.Start()

	dash := dashboard.NewHandler(dashboard.NewPresenter(store), dashboard.Options{
		RefreshInterval: cfg.Web.RefreshInterval.Duration(),
		MetricsPath:     cfg.Web.TelemetryPath,
		Version:         version,
	})
	srv := &http.Server{
		Handler: newServeMux(cfg, store, smp, dash),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting netperf monitor (Version: %s)", version)
		log.Infof("Listening on %s (metrics on %s)", ln.Addr(), cfg.Web.TelemetryPath)
		serverErr <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		log.Infoln("Shutting down")
		err = nil
	case err = <-serverErr:
	}

	smp.Stop()
	dash.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
		log.Warnf("could not shut down web server: %v", serr)
	}

	smp.Wait()
	log.Infoln("Monitoring stopped.")

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func newServeMux(cfg *config.Config, store *series.Store, smp *sampler.Sampler, dash http.Handler) *http.ServeMux {
	reg := prometheus.NewRegistry()
	reg.MustRegister(newNetperfCollector(store, smp, rttUnitFromString(cfg.Metrics.RTTUnit), cfg.Metrics.Labels))

	l := log.New()
	l.Level = log.ErrorLevel

	h := promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog:      l,
		ErrorHandling: promhttp.ContinueOnError,
	})

	mux := http.NewServeMux()
	mux.Handle(cfg.Web.TelemetryPath, h)
	mux.Handle("/", dash)

	return mux
}

// applyConfigChange applies the reloadable settings of a changed config file.
func applyConfigChange(c *config.Config, smp *sampler.Sampler) {
	addFlagToConfig(c, flagConfig())
	if err := c.Validate(); err != nil {
		log.Warnf("ignoring config change: %v", err)
		return
	}

	setLogLevel(c.Log.Level)
	if d := c.Sample.Interval.Duration(); d != smp.Interval() {
		log.Infof("sample.interval changed to %s", d)
		smp.SetInterval(d)
	}
}

func loadConfig() (*config.Config, error) {
	if *configFile == "" {
		return flagConfig(), nil
	}

	cfg, err := config.LoadFile(*configFile)
	if err != nil {
		return nil, err
	}

	addFlagToConfig(cfg, flagConfig())
	return cfg, nil
}

// flagConfig returns a config holding the command line flag values.
func flagConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Web.ListenAddress = *listenAddress
	cfg.Web.TelemetryPath = *metricsPath
	cfg.Web.RefreshInterval.Set(*refreshInterval)
	cfg.Sample.Interval.Set(*sampleInterval)
	cfg.Sample.Timeout.Set(*sampleTimeout)
	cfg.Ping.Timeout.Set(*pingTimeout)
	cfg.Ping.Size = *pingSize
	cfg.Ping.Unreachable = *pingUnreachable
	cfg.Speedtest.Candidates = *speedtestCandidates
	cfg.DNS.Nameserver = *dnsNameServer
	cfg.Metrics.RTTUnit = *rttMode
	cfg.Log.Level = *logLevel

	return cfg
}

// addFlagToConfig updates cfg with command line flag values, unless the
// config has non-zero values.
func addFlagToConfig(cfg, flags *config.Config) {
	if cfg.Web.ListenAddress == "" {
		cfg.Web.ListenAddress = flags.Web.ListenAddress
	}
	if cfg.Web.TelemetryPath == "" {
		cfg.Web.TelemetryPath = flags.Web.TelemetryPath
	}
	if cfg.Web.RefreshInterval == 0 {
		cfg.Web.RefreshInterval = flags.Web.RefreshInterval
	}
	if cfg.Sample.Interval == 0 {
		cfg.Sample.Interval = flags.Sample.Interval
	}
	if cfg.Sample.Timeout == 0 {
		cfg.Sample.Timeout = flags.Sample.Timeout
	}
	if cfg.Ping.Timeout == 0 {
		cfg.Ping.Timeout = flags.Ping.Timeout
	}
	if cfg.Ping.Size == 0 {
		cfg.Ping.Size = flags.Ping.Size
	}
	if cfg.Ping.Unreachable == "" {
		cfg.Ping.Unreachable = flags.Ping.Unreachable
	}
	if cfg.Speedtest.Candidates == 0 {
		cfg.Speedtest.Candidates = flags.Speedtest.Candidates
	}
	if cfg.DNS.Nameserver == "" {
		cfg.DNS.Nameserver = flags.DNS.Nameserver
	}
	if cfg.Metrics.RTTUnit == "" {
		cfg.Metrics.RTTUnit = flags.Metrics.RTTUnit
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = flags.Log.Level
	}
}
