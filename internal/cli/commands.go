package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"kasa-backend/internal/database"
	"kasa-backend/internal/models"
	"kasa-backend/internal/resolver"
	"kasa-backend/internal/sales"
	"kasa-backend/internal/sections"
	"kasa-backend/internal/shift"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Veritabanı şemasını günceller",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openDB()
			if err != nil {
				return err
			}
			if err := database.Migrate(db, opts.logger); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "migration tamamlandı")
			return err
		},
	}
}

type resolveOptions struct {
	*RootOptions
	Branch  uint
	Section uint
	Actor   uint
	Pinned  uint
}

type ResolveResult struct {
	Shift        *models.Shift `json:"shift"`
	Strategy     string        `json:"strategy,omitempty"`
	PinnedClosed bool          `json:"pinned_closed,omitempty"`
}

func NewResolveCommand(root *RootOptions) *cobra.Command {
	opts := &resolveOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Şube için açık vardiyayı çözer ve bulan stratejiyi yazar",
		Example: `  kasactl resolve --branch 1
  kasactl resolve --branch 1 --section 2 --actor 7 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openDB()
			if err != nil {
				return err
			}
			svc, dir := opts.services(db)
			res := resolver.New(svc, dir, nil, resolver.Options{
				ReprobeDelay:       opts.cfg.ReprobeDelay,
				ProbeTimeout:       opts.cfg.ProbeTimeout,
				SectionConcurrency: opts.cfg.SectionConcurrency,
				Logger:             opts.logger,
			})

			sc := resolver.Scope{ActorID: opts.Actor, BranchID: opts.Branch}
			if opts.Section != 0 {
				sc.SectionID = &opts.Section
			}
			if opts.Pinned != 0 {
				sc = sc.WithPinned(opts.Pinned)
			}

			out, err := res.ResolveSettled(cmd.Context(), sc)
			if err != nil {
				return err
			}
			result := ResolveResult{Shift: out.Shift, Strategy: out.Strategy, PinnedClosed: out.PinnedClosed}
			return opts.render(cmd.OutOrStdout(), result, func(w io.Writer) error {
				if out.Shift == nil {
					_, err := fmt.Fprintln(w, "açık vardiya yok")
					return err
				}
				_, err := fmt.Fprintf(w, "vardiya #%d (şube %d, bölüm %d) strateji: %s\n",
					out.Shift.ID, out.Shift.BranchID, out.Shift.SectionID, out.Strategy)
				return err
			})
		},
	}

	cmd.Flags().UintVar(&opts.Branch, "branch", 0, "şube id (zorunlu)")
	_ = cmd.MarkFlagRequired("branch")
	cmd.Flags().UintVar(&opts.Section, "section", 0, "bölüm id")
	cmd.Flags().UintVar(&opts.Actor, "actor", 0, "kullanıcı id")
	cmd.Flags().UintVar(&opts.Pinned, "pinned", 0, "sabitlenmiş vardiya id")
	return cmd
}

func NewSummaryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <shift-id>",
		Short: "Vardiya kasa özetini yazar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("geçersiz vardiya id %q", args[0])
			}
			db, err := opts.openDB()
			if err != nil {
				return err
			}
			svc, _ := opts.services(db)

			summary, err := svc.Summary(cmd.Context(), uint(id))
			if err != nil {
				return err
			}
			return opts.render(cmd.OutOrStdout(), summary, func(w io.Writer) error {
				return writeSummary(w, summary)
			})
		},
	}
}

func writeSummary(w io.Writer, s shift.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "vardiya\t#%d (%s)\n", s.Shift.ID, s.Shift.Status)
	fmt.Fprintf(tw, "açılış\t%s\n", s.OpeningCash.StringFixed(2))
	fmt.Fprintf(tw, "nakit satış\t%s\n", s.CashSales.StringFixed(2))
	fmt.Fprintf(tw, "kart satış\t%s\n", s.CardSales.StringFixed(2))
	fmt.Fprintf(tw, "giriş\t%s\n", s.PayIns.StringFixed(2))
	fmt.Fprintf(tw, "çıkış\t%s\n", s.PayOuts.StringFixed(2))
	fmt.Fprintf(tw, "beklenen\t%s\n", s.ExpectedCash.StringFixed(2))
	if s.ClosingCash.Valid {
		fmt.Fprintf(tw, "sayılan\t%s\n", s.ClosingCash.Decimal.StringFixed(2))
		fmt.Fprintf(tw, "fark\t%s\n", s.Difference.Decimal.StringFixed(2))
	}
	return tw.Flush()
}

type shiftsOptions struct {
	*RootOptions
	Branch  uint
	Section uint
	Status  string
	Limit   int
	Offset  int
}

func NewShiftsCommand(root *RootOptions) *cobra.Command {
	opts := &shiftsOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "shifts",
		Short: "Şube vardiyalarını listeler",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := shift.ListFilter{Limit: opts.Limit, Offset: opts.Offset}
			if opts.Branch != 0 {
				f.BranchID = &opts.Branch
			}
			if opts.Section != 0 {
				f.SectionID = &opts.Section
			}
			if opts.Status != "" {
				status := models.ShiftStatus(opts.Status)
				if status != models.ShiftStatusOpen && status != models.ShiftStatusClosed {
					return fmt.Errorf("geçersiz status %q (open|closed)", opts.Status)
				}
				f.Status = &status
			}

			db, err := opts.openDB()
			if err != nil {
				return err
			}
			svc, _ := opts.services(db)
			page, err := svc.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			return opts.render(cmd.OutOrStdout(), page, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tŞUBE\tBÖLÜM\tDURUM\tAÇILIŞ\tAÇAN")
				for _, sh := range page.Items {
					fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\t%d\n",
						sh.ID, sh.BranchID, sh.SectionID, sh.Status,
						sh.OpenedAt.Format("2006-01-02 15:04"), sh.OpenedBy)
				}
				fmt.Fprintf(tw, "toplam: %d\n", page.Total)
				return tw.Flush()
			})
		},
	}

	cmd.Flags().UintVar(&opts.Branch, "branch", 0, "şube id")
	cmd.Flags().UintVar(&opts.Section, "section", 0, "bölüm id")
	cmd.Flags().StringVar(&opts.Status, "status", "", "open|closed")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "sayfa boyutu")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "başlangıç")
	return cmd
}

func (o *RootOptions) services(db *gorm.DB) (*shift.Service, *sections.Directory) {
	dir := sections.NewDirectory(db)
	svc := shift.NewService(shift.NewGormRepository(db), sales.NewService(db), dir, o.logger)
	return svc, dir
}
