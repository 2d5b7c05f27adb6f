package cli

import (
	"github.com/urfave/cli/v3"

	"github.com/linto-ai/lintoctl/pkg/certbackup"
	"github.com/linto-ai/lintoctl/pkg/config"
	"github.com/linto-ai/lintoctl/pkg/errors"
	"github.com/linto-ai/lintoctl/pkg/helm"
	"github.com/linto-ai/lintoctl/pkg/k8s/client"
	"github.com/linto-ai/lintoctl/pkg/k8s/cluster"
	"github.com/linto-ai/lintoctl/pkg/logging"
	"github.com/linto-ai/lintoctl/pkg/orchestrator"
	"github.com/linto-ai/lintoctl/pkg/profile"
	"github.com/linto-ai/lintoctl/pkg/status"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"
)

// app carries the wiring shared by every command.
type app struct {
	cfg   *config.Config
	store profile.Store
}

// setup loads the configuration, installs the logger and opens the
// profile store. It runs at the start of every command action.
func setup(cmd *cli.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	logging.Setup(cfg.LogLevel)

	return &app{
		cfg:   cfg,
		store: profile.NewFileStore(cfg.ProfilesDir()),
	}, nil
}

// kubeconfigFor picks the kubeconfig for one profile: the command-line
// flag, then the profile's pinned path, then the process configuration.
func (a *app) kubeconfigFor(cmd *cli.Command, p *profile.Profile) string {
	if path := cmd.String("kubeconfig"); path != "" {
		return path
	}
	if p != nil && p.Kubeconfig != "" {
		return p.Kubeconfig
	}
	return a.cfg.Kubeconfig
}

// loadProfile loads one profile, attaching a name suggestion when the
// profile does not exist.
func (a *app) loadProfile(name string) (*profile.Profile, error) {
	p, err := a.store.Load(name)
	if err != nil && errors.IsCode(err, errors.ErrCodeNotFound) {
		if hint := suggestProfile(a.store, name); hint != "" {
			if se, ok := err.(*errors.StructuredError); ok {
				se.Message += ", did you mean " + hint + "?"
			}
		}
	}
	return p, err
}

// connect builds the orchestrator and its cluster clients for one
// profile.
func (a *app) connect(cmd *cli.Command, p *profile.Profile) (*orchestrator.Orchestrator, error) {
	kubeconfig := a.kubeconfigFor(cmd, p)

	kube, _, err := client.Build(kubeconfig)
	if err != nil {
		return nil, err
	}

	clusterClient := cluster.New(kube)
	return orchestrator.New(orchestrator.Options{
		Store:     a.store,
		Releases:  helm.NewClient(kubeconfig, a.cfg.ChartDir, nil),
		Cluster:   clusterClient,
		Backups:   certbackup.NewManager(a.cfg.CertsDir(), clusterClient),
		RenderDir: a.cfg.RenderDir,
		Timeout:   a.cfg.DeployTimeout,
	}), nil
}

// aggregator builds a status aggregator, with metrics when available.
func (a *app) aggregator(cmd *cli.Command, p *profile.Profile) (*status.Aggregator, error) {
	kubeconfig := a.kubeconfigFor(cmd, p)
	kube, restCfg, err := client.Build(kubeconfig)
	if err != nil {
		return nil, err
	}

	var metrics metricsclient.Interface
	if mc, err := metricsclient.NewForConfig(restCfg); err == nil {
		metrics = mc
	}
	return status.NewAggregator(cluster.New(kube), metrics), nil
}

// New assembles the root command.
func New() *cli.Command {
	return &cli.Command{
		Name:                  "lintoctl",
		Usage:                 "Deploy and operate the LinTO platform on Kubernetes",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
			},
			&cli.StringFlag{
				Name:  "kubeconfig",
				Usage: "Path to the kubeconfig file (overrides profile and environment)",
			},
		},
		Commands: []*cli.Command{
			profileCmd(),
			renderCmd(),
			deployCmd(),
			redeployCmd(),
			destroyCmd(),
			statusCmd(),
			versionCmd(),
		},
	}
}
