package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"photo-counter/config"
	"photo-counter/internal/container"
	"photo-counter/internal/logger"
)

const daemonAnnotation = "daemon"

// state общие для команд конфигурация и сервисы, заполняются в PersistentPreRunE
type state struct {
	envFile   string
	storeFlag string
	dataDir   string

	cfg *config.Config
	log *logger.Logger
	app *container.Container
}

func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd собирает дерево команд photo-counter.
func NewRootCmd() *cobra.Command {
	st := &state{}

	root := &cobra.Command{
		Use:           "photo-counter",
		Short:         "Count objects on photos and keep per-session totals",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return st.close()
		},
	}

	root.PersistentFlags().StringVar(&st.envFile, "env", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&st.storeFlag, "store", "", "store driver: file, sqlite or memory (overrides STORE_DRIVER)")
	root.PersistentFlags().StringVar(&st.dataDir, "data-dir", "", "data directory (overrides DATA_DIR)")

	root.AddCommand(sessionCmd(st), imageCmd(st), countCmd(st), exportCmd(st), settingsCmd(st), botCmd(st), serveCmd(st))
	return root
}

func (st *state) open(cmd *cobra.Command) error {
	cfg, err := config.Load(st.envFile)
	if err != nil {
		return err
	}
	if st.storeFlag != "" {
		cfg.StoreDriver = st.storeFlag
	}
	if st.dataDir != "" {
		cfg.DataDir = st.dataDir
		if os.Getenv("PHOTO_DIR") == "" {
			cfg.PhotoDir = filepath.Join(st.dataDir, "photos")
		}
	}

	// короткие команды пишут журнал в stderr, чтобы не смешивать его с выводом
	log := logger.NewWriter(cmd.ErrOrStderr())
	if cmd.Annotations[daemonAnnotation] != "" {
		if log, err = logger.New(cfg.LogDir); err != nil {
			return err
		}
	}

	app, err := container.Build(cmd.Context(), cfg, log)
	if err != nil {
		log.Close()
		return err
	}

	st.cfg, st.log, st.app = cfg, log, app
	return nil
}

func (st *state) close() error {
	var err error
	if st.app != nil {
		err = st.app.Close()
	}
	if st.log != nil {
		st.log.Close()
	}
	return err
}
