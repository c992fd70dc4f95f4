package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"cmdgate/internal/app"
	"cmdgate/internal/config"
	"cmdgate/internal/core"
	"cmdgate/internal/executor"
	"cmdgate/internal/modules/host"
	"cmdgate/internal/storage"
	"cmdgate/internal/storage/sqlite"
	"cmdgate/internal/transports/gateway"
	"cmdgate/pkg/logger"
)

type options struct {
	configPath    string
	endpointsPath string
}

func (o *options) load() (config.Config, config.Endpoints, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, config.Endpoints{}, fmt.Errorf("load config: %w", err)
	}
	eps, err := config.LoadEndpoints(o.endpointsPath)
	if err != nil {
		return cfg, eps, fmt.Errorf("load endpoints: %w", err)
	}
	return cfg, eps, nil
}

func (o *options) registry() (*core.Registry, error) {
	eps, err := config.LoadEndpoints(o.endpointsPath)
	if err != nil {
		return nil, fmt.Errorf("load endpoints: %w", err)
	}
	return core.NewRegistry(eps.Definitions())
}

// openStore открывает базу аудита: явный путь или audit.path из конфига.
func (o *options) openStore(dbPath string) (*sqlite.Store, error) {
	if dbPath == "" {
		cfg, err := config.Load(o.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		dbPath = cfg.Audit.Path
	}
	return sqlite.Open(dbPath)
}

// New создает корневую CLI-команду.
func New(version string) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "cmdgate",
		Short:         "Шлюз, публикующий команды ОС как HTTP-маршруты",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config/config.yaml", "путь к config.yaml")
	root.PersistentFlags().StringVarP(&opts.endpointsPath, "endpoints", "e", "config/endpoints.yaml", "путь к endpoints.yaml")

	root.AddCommand(newVersionCmd(version))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newEndpointsCmd(opts))
	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newHostCmd(opts))
	root.AddCommand(newAuditCmd(opts))

	return root
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Показать версию",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", version)
		},
	}
}

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить шлюз",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, eps, err := opts.load()
			if err != nil {
				return err
			}
			lg := logger.New(cfg.Agent.LogLevel)
			a, err := app.NewApp(cmd.Context(), cfg, eps, lg)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(cmd.Context())
		},
	}
}

func newEndpointsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints",
		Short: "Показать сконфигурированные маршруты",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.registry()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), r.Describe())
		},
	}
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run <route>",
		Short: "Выполнить команду маршрута локально и вывести JSON-ответ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.registry()
			if err != nil {
				return err
			}
			def, ok := r.Resolve(args[0])
			if !ok {
				return fmt.Errorf("%s: endpoint not found", args[0])
			}
			res := executor.New().Execute(cmd.Context(), def)
			fmt.Fprintln(cmd.OutOrStdout(), gateway.BuildCommandResponse(res, def).Body)
			if !res.Success() {
				return fmt.Errorf("%s: command failed", args[0])
			}
			return nil
		},
	}
}

func newHostCmd(opts *options) *cobra.Command {
	hostCmd := &cobra.Command{
		Use:   "host",
		Short: "Сведения об узле",
	}
	var (
		latest bool
		dbPath string
	)
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Показать состояние узла",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if latest {
				return printLatestSnapshot(cmd, opts, dbPath)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
			defer cancel()

			snap, err := host.Collect(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), snap)
		},
	}
	statusCmd.Flags().BoolVar(&latest, "latest", false, "показать последний сохраненный снимок вместо текущего")
	statusCmd.Flags().StringVar(&dbPath, "db", "", "путь к базе (по умолчанию audit.path из конфига)")
	hostCmd.AddCommand(statusCmd)
	return hostCmd
}

type snapshotDTO struct {
	Module   string          `json:"module"`
	TS       string          `json:"ts"`
	Snapshot json.RawMessage `json:"snapshot"`
}

func printLatestSnapshot(cmd *cobra.Command, opts *options, dbPath string) error {
	st, err := opts.openStore(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.LatestMetric(cmd.Context(), host.ModuleName)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), snapshotDTO{
		Module:   rec.Module,
		TS:       rec.TS.UTC().Format(time.RFC3339),
		Snapshot: json.RawMessage(rec.Payload),
	})
}

func newAuditCmd(opts *options) *cobra.Command {
	var (
		dbPath string
		path   string
		limit  int
		since  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Показать журнал обработанных запросов",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			q := storage.AuditQuery{Path: path, Limit: limit}
			if since > 0 {
				q.From = time.Now().UTC().Add(-since)
			}
			events, err := st.QueryAudit(cmd.Context(), q)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), auditDTOs(events))
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "путь к базе аудита (по умолчанию audit.path из конфига)")
	cmd.Flags().StringVar(&path, "path", "", "фильтр по маршруту")
	cmd.Flags().IntVar(&limit, "limit", 50, "максимум записей (до 200)")
	cmd.Flags().DurationVar(&since, "since", 0, "только записи не старше указанного интервала")
	return cmd
}

type auditDTO struct {
	RequestID  string `json:"request_id"`
	Remote     string `json:"remote"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	StatusCode int    `json:"status_code"`
	Outcome    string `json:"outcome"`
	DurationMS int64  `json:"duration_ms"`
	TS         string `json:"ts"`
}

func auditDTOs(events []storage.AuditEvent) []auditDTO {
	out := make([]auditDTO, 0, len(events))
	for _, ev := range events {
		out = append(out, auditDTO{
			RequestID:  ev.RequestID,
			Remote:     ev.Remote,
			Method:     ev.Method,
			Path:       ev.Path,
			StatusCode: ev.StatusCode,
			Outcome:    ev.Outcome,
			DurationMS: ev.Duration.Milliseconds(),
			TS:         ev.TS.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
