package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"kasa-backend/internal/config"
	"kasa-backend/internal/database"
	"kasa-backend/internal/logging"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// ValidFormats izin verilen çıktı formatları.
var ValidFormats = []string{"text", "json", "yaml"}

// OpenFunc DSN'den veritabanı bağlantısı açar.
type OpenFunc func(dsn string) (*gorm.DB, error)

// RootOptions tüm komutların ortak bayrakları.
type RootOptions struct {
	Format string
	DSN    string

	cfg    *config.Config
	open   OpenFunc
	logger *slog.Logger
}

// NewRootCommand kasactl kök komutunu kurar. open nil ise Postgres kullanılır.
func NewRootCommand(open OpenFunc) *cobra.Command {
	if open == nil {
		open = database.Open
	}
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "kasactl",
		Short: "Kasa vardiya yönetim aracı",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("geçersiz format %q: %v olmalı", opts.Format, ValidFormats)
			}
			cfg, err := config.LoadStore()
			if err != nil {
				return err
			}
			if opts.DSN != "" {
				cfg.DatabaseDSN = opts.DSN
			}
			opts.cfg = cfg
			opts.logger = logging.NewWithWriter(cfg, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "çıktı formatı (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "veritabanı DSN (varsayılan DATABASE_DSN)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewSummaryCommand(opts))
	cmd.AddCommand(NewShiftsCommand(opts))

	return cmd
}

func (o *RootOptions) openDB() (*gorm.DB, error) {
	db, err := o.open(o.cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("veritabanına bağlanılamadı: %w", err)
	}
	return db, nil
}

// render v'yi seçilen formatta yazar; text için textFn kullanılır.
func (o *RootOptions) render(w io.Writer, v any, textFn func(io.Writer) error) error {
	switch o.Format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(toPlain(v))
	default:
		return textFn(w)
	}
}

// toPlain JSON etiketlerini YAML'a taşımak için değeri JSON üzerinden düz map'e çevirir.
func toPlain(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}
