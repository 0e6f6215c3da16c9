package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/config"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/db"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/dispatch"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/gallery"
	"github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool

	intentFlag string
	outboxDir  string
	assumeYes  bool
	noFiles    bool
	probeCount int
)

var rootCmd = &cobra.Command{
	Use:   "sharectl",
	Short: "Share saree photos to chat from the command line",
	Long: `Run the photo share pipeline against a headless host.

File shares are delivered into an outbox directory, chat links are printed
one per line, and batch confirmations are read from standard input.`,
	SilenceUsage: true,
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Show the capability profile and the methods offered for a photo count",
	RunE:  runProbe,
}

var shareCmd = &cobra.Command{
	Use:   "share [photos.json]",
	Short: "Share the photos listed in a JSON file (or stdin)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShare,
}

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Inspect stored gallery links",
}

var galleryShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored gallery",
	Args:  cobra.ExactArgs(1),
	RunE:  runGalleryShow,
}

var galleryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored gallery ids",
	Args:  cobra.NoArgs,
	RunE:  runGalleryList,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "photoshare.yaml", "Config file (.yaml or .toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	shareCmd.Flags().StringVarP(&intentFlag, "intent", "i", "auto", "Share method: 'auto', 'files', 'batched', or 'gallery'")
	shareCmd.Flags().StringVarP(&outboxDir, "outbox", "o", "outbox", "Directory file shares are delivered to")
	shareCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Confirm every batch without asking")
	shareCmd.Flags().BoolVar(&noFiles, "no-files", false, "Simulate a host without file sharing")

	probeCmd.Flags().IntVarP(&probeCount, "count", "n", 1, "Photo count to recommend a method for")
	probeCmd.Flags().StringVarP(&outboxDir, "outbox", "o", "outbox", "Directory file shares are delivered to")
	probeCmd.Flags().BoolVar(&noFiles, "no-files", false, "Simulate a host without file sharing")

	galleryCmd.AddCommand(galleryShowCmd, galleryListCmd)
	rootCmd.AddCommand(probeCmd, shareCmd, galleryCmd)
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readPhotos decodes a photo list from path, or stdin when path is "" or "-".
func readPhotos(path string, stdin io.Reader) ([]photoshare.ShareablePhoto, error) {
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read photos: %w", err)
	}
	return photoshare.UnmarshalPhotos(data)
}

func newHost(cfg *config.Config, cmd *cobra.Command, logger *zap.Logger) (hostAdapters, error) {
	h := hostAdapters{
		Opener:    &printOpener{out: cmd.OutOrStdout()},
		Confirmer: newLineConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr(), assumeYes),
		Notifier:  logNotifier(logger),
	}
	if cfg.Runtime.NativeApp {
		h.Sheet = &printSheet{out: cmd.OutOrStdout()}
	}
	if !noFiles {
		surface, err := newOutboxSurface(outboxDir, 0)
		if err != nil {
			return hostAdapters{}, err
		}
		h.Surface = surface
	}
	return h, nil
}

type probeReport struct {
	Profile     photoshare.CapabilityProfile `json:"profile"`
	Count       int                          `json:"count"`
	Recommended photoshare.Intent            `json:"recommended"`
	Choices     []dispatch.Choice            `json:"choices"`
}

func runProbe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	host, err := newHost(cfg, cmd, logger)
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, host, logger, nil)
	if err != nil {
		return err
	}
	defer p.Close()

	return printJSON(cmd.OutOrStdout(), probeReport{
		Profile:     p.profiler.Profile(cmd.Context()),
		Count:       probeCount,
		Recommended: dispatch.Recommend(probeCount, cfg.Thresholds),
		Choices:     dispatch.Choices(probeCount, cfg.Thresholds),
	})
}

func runShare(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	intent, err := photoshare.ParseIntent(intentFlag)
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	photos, err := readPhotos(path, cmd.InOrStdin())
	if err != nil {
		return err
	}

	host, err := newHost(cfg, cmd, logger)
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, host, logger, metrics.New(prometheus.NewRegistry()))
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, shareErr := p.dispatcher.Share(ctx, photos, intent)
	if err := printJSON(cmd.OutOrStdout(), out); err != nil {
		return err
	}
	if shareErr != nil {
		return shareErr
	}
	if !out.OK() {
		title, detail := photoshare.Describe(out, len(photos))
		return fmt.Errorf("%s: %s", title, detail)
	}
	return nil
}

func openStore() (photoshare.GalleryStore, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	store, err := db.OpenReader(cfg.Store.Type, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gallery store: %w", err)
	}
	return store, nil
}

func runGalleryShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := gallery.NewReader(store, nil).Open(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, photoshare.ErrGalleryExpired) {
			return fmt.Errorf("this gallery link has expired: %w", err)
		}
		return err
	}
	return printJSON(cmd.OutOrStdout(), rec)
}

func runGalleryList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ids, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
