package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/g960059/tiledash/internal/api"
	"github.com/g960059/tiledash/internal/config"
	"github.com/g960059/tiledash/internal/db"
	"github.com/g960059/tiledash/internal/launch"
	"github.com/g960059/tiledash/internal/model"
	"github.com/g960059/tiledash/internal/registry"
	"github.com/g960059/tiledash/internal/tile"
)

type Runner struct {
	cfg      config.Config
	out      io.Writer
	errOut   io.Writer
	launcher launch.Launcher
	now      func() time.Time
	jsonOut  bool
}

var errTileNotFound = errors.New("tile not found")

type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func NewRunner(cfg config.Config, out, errOut io.Writer) *Runner {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	r := &Runner{
		cfg:    cfg,
		out:    out,
		errOut: errOut,
		now:    func() time.Time { return time.Now().UTC() },
	}
	r.launcher = launch.LauncherFunc(r.printLaunch)
	return r
}

// WithLauncher replaces the default launcher, which only prints dispatched plans.
func (r *Runner) WithLauncher(l launch.Launcher) *Runner {
	if l != nil {
		r.launcher = l
	}
	return r
}

func (r *Runner) Run(ctx context.Context, args []string) int {
	root := r.rootCommand()
	root.SetArgs(args)
	root.SetOut(r.out)
	root.SetErr(r.errOut)
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(r.errOut, "error: %v\n", err)
		if r.jsonOut {
			_ = r.writeJSON(api.ErrorResponse{
				SchemaVersion: api.SchemaVersion,
				GeneratedAt:   r.now(),
				Error:         api.APIError{Code: errorCode(err), Message: err.Error()},
			})
		}
		var usage usageError
		if errors.As(err, &usage) {
			return 2
		}
		return 1
	}
	return 0
}

func errorCode(err error) string {
	var usage usageError
	switch {
	case errors.As(err, &usage):
		return model.ErrCodeUsage
	case errors.Is(err, tile.ErrMissingDestination):
		return model.ErrCodeMissingDestination
	case errors.Is(err, launch.ErrUnresolvableComponent), errors.Is(err, launch.ErrNoEligibleUser):
		return model.ErrCodeUnresolvableComponent
	case errors.Is(err, launch.ErrInvalidSelection):
		return model.ErrCodeInvalidSelection
	case errors.Is(err, errTileNotFound), errors.Is(err, db.ErrNotFound):
		return model.ErrCodeNotFound
	case errors.Is(err, api.ErrUnsupportedSchema):
		return model.ErrCodeUnsupportedSchema
	default:
		return model.ErrCodeInternal
	}
}

func (r *Runner) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "tiledash",
		Short:         "Inspect and launch dashboard tiles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&r.cfg.DBPath, "db", r.cfg.DBPath, "SQLite catalog path")
	root.PersistentFlags().IntVar(&r.cfg.CallerUser, "caller-user", r.cfg.CallerUser, "user handle of the caller")
	root.PersistentFlags().BoolVar(&r.jsonOut, "json", false, "output JSON")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err: err}
	})
	root.AddCommand(
		r.importCommand(),
		r.categoriesCommand(),
		r.tilesCommand(),
		r.openCommand(),
		r.homeCommand(),
		r.launchesCommand(),
	)
	return root
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return usageError{err: fmt.Errorf("usage: tiledash %s", usage)}
		}
		return nil
	}
}

func (r *Runner) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <catalog.json>",
		Short: "Load categories and tiles from a catalog file",
		Args:  exactArgs(1, "import <catalog.json>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read catalog: %w", err)
			}
			var catalog api.Catalog
			if err := json.Unmarshal(raw, &catalog); err != nil {
				return fmt.Errorf("decode catalog: %w", err)
			}
			categories, err := catalog.ModelCategories()
			if err != nil {
				return err
			}
			return r.withStore(cmd.Context(), func(ctx context.Context, store *db.Store) error {
				for _, pkg := range catalog.Packages {
					if err := store.UpsertPackage(ctx, pkg); err != nil {
						return err
					}
				}
				for _, p := range catalog.Profiles {
					if err := store.UpsertProfile(ctx, model.Profile{User: model.UserHandle(p.User), Name: p.Name}); err != nil {
						return err
					}
				}
				if err := store.ImportCatalog(ctx, categories); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(r.out, "imported %d categories\n", len(categories))
				return nil
			})
		},
	}
}

func (r *Runner) categoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  exactArgs(0, "categories [--json]"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withProvider(cmd.Context(), func(ctx context.Context, p *registry.Provider) error {
				cats, err := p.Categories(ctx)
				if err != nil {
					return err
				}
				env := api.CategoriesEnvelope{SchemaVersion: api.SchemaVersion, GeneratedAt: r.now(), Categories: []api.CategoryResponse{}}
				for _, c := range cats {
					env.Categories = append(env.Categories, api.CategoryResponse{Key: c.Key, Title: c.Title, TileCount: len(c.Tiles)})
				}
				if r.jsonOut {
					return r.writeJSON(env)
				}
				for _, c := range env.Categories {
					_, _ = fmt.Fprintf(r.out, "%s\t%s\t%d\n", c.Key, c.Title, c.TileCount)
				}
				return nil
			})
		},
	}
}

func (r *Runner) tilesCommand() *cobra.Command {
	var (
		baseOrder     int
		callerPackage string
	)
	cmd := &cobra.Command{
		Use:   "tiles <category>",
		Short: "Bind the tiles of a category to display items",
		Args:  exactArgs(1, "tiles <category> [--base-order n] [--caller-package pkg] [--json]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("base-order") {
				baseOrder = tile.DefaultOrder
			}
			if callerPackage == "" {
				callerPackage = r.cfg.CallerPackage
			}
			return r.withProvider(cmd.Context(), func(ctx context.Context, p *registry.Provider) error {
				items, err := p.BindCategory(ctx, args[0], baseOrder, callerPackage)
				if err != nil {
					return err
				}
				env := api.ItemsEnvelope{SchemaVersion: api.SchemaVersion, GeneratedAt: r.now(), Category: args[0], Items: []api.ItemResponse{}}
				for _, item := range items {
					env.Items = append(env.Items, itemResponse(item))
				}
				if r.jsonOut {
					return r.writeJSON(env)
				}
				for _, item := range env.Items {
					order := "-"
					if item.Order != nil {
						order = fmt.Sprint(*item.Order)
					}
					_, _ = fmt.Fprintf(r.out, "%s\t%s\t%s\t%s\n", item.Key, order, item.Kind, item.Title)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&baseOrder, "base-order", 0, "order offset for tiles declared by other packages")
	cmd.Flags().StringVar(&callerPackage, "caller-package", "", "package of the screen hosting the tiles")
	return cmd
}

func (r *Runner) openCommand() *cobra.Command {
	var selectU int
	cmd := &cobra.Command{
		Use:   "open <category> <key>",
		Short: "Resolve and dispatch a tile",
		Args:  exactArgs(2, "open <category> <key> [--select user] [--json]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			var selector launch.ProfileSelector
			if cmd.Flags().Changed("select") {
				selector = launch.SelectorFunc(func(context.Context, []model.UserHandle) (model.UserHandle, bool, error) {
					return model.UserHandle(selectU), true, nil
				})
			}
			return r.withProvider(cmd.Context(), func(ctx context.Context, p *registry.Provider) error {
				t, ok, err := p.FindTile(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("tile %s/%s: %w", args[0], args[1], errTileNotFound)
				}
				if nav, ok := t.Destination().(model.FragmentNavigate); ok {
					_, _ = fmt.Fprintf(r.out, "navigate\t%s\n", nav.ClassName)
					return nil
				}
				if t.Intent == nil {
					return fmt.Errorf("tile %s: %w", args[1], tile.ErrMissingDestination)
				}
				outcome, err := p.OpenTile(ctx, &t, r.launcher, selector)
				if err != nil {
					return err
				}
				resp := planResponse(outcome)
				if r.jsonOut {
					return r.writeJSON(api.PlanEnvelope{SchemaVersion: api.SchemaVersion, GeneratedAt: r.now(), Plan: resp})
				}
				if outcome.State == launch.StateChooseProfile {
					_, _ = fmt.Fprintf(r.out, "choose_profile\t%v\n", resp.Candidates)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&selectU, "select", 0, "user handle picked when several profiles are eligible")
	return cmd
}

func (r *Runner) homeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Open the settings home screen",
		Args:  exactArgs(0, "home [--json]"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withProvider(cmd.Context(), func(ctx context.Context, p *registry.Provider) error {
				outcome, err := p.OpenTile(ctx, nil, r.launcher, nil)
				if err != nil {
					return err
				}
				if r.jsonOut {
					return r.writeJSON(api.PlanEnvelope{SchemaVersion: api.SchemaVersion, GeneratedAt: r.now(), Plan: planResponse(outcome)})
				}
				return nil
			})
		},
	}
}

func (r *Runner) launchesCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "launches",
		Short: "Show recorded tile launches",
		Args:  exactArgs(0, "launches [--limit n] [--json]"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withStore(cmd.Context(), func(ctx context.Context, store *db.Store) error {
				records, err := store.ListLaunches(ctx, limit)
				if err != nil {
					return err
				}
				env := api.LaunchesEnvelope{SchemaVersion: api.SchemaVersion, GeneratedAt: r.now(), Launches: []api.LaunchResponse{}}
				for _, rec := range records {
					env.Launches = append(env.Launches, api.LaunchResponse{
						LaunchID:   rec.LaunchID,
						Component:  rec.Component,
						RecordedAt: rec.RecordedAt.Format(time.RFC3339),
					})
				}
				if r.jsonOut {
					return r.writeJSON(env)
				}
				for _, l := range env.Launches {
					_, _ = fmt.Fprintf(r.out, "%s\t%s\n", l.RecordedAt, l.Component)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum records, 0 for all")
	return cmd
}

func (r *Runner) withStore(ctx context.Context, fn func(context.Context, *db.Store) error) error {
	store, err := db.Open(ctx, r.cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck
	if err := db.ApplyMigrations(ctx, store.DB()); err != nil {
		return err
	}
	return fn(ctx, store)
}

func (r *Runner) withProvider(ctx context.Context, fn func(context.Context, *registry.Provider) error) error {
	return r.withStore(ctx, func(ctx context.Context, store *db.Store) error {
		logger := r.logger()
		opts := make([]launch.Option, 0, 2)
		pkgs, err := store.PackageSnapshot(ctx)
		if err != nil {
			return err
		}
		if pkgs != nil {
			opts = append(opts, launch.WithPackageIndex(pkgs))
		}
		profiles, err := store.ProfileSnapshot(ctx)
		if err != nil {
			return err
		}
		if profiles != nil {
			opts = append(opts, launch.WithProfileDirectory(profiles))
		}
		resolver := launch.NewResolver(
			db.NewLaunchLog(store, logger, r.cfg.LaunchLogTimeout),
			model.UserHandle(r.cfg.CallerUser),
			opts...,
		)
		contributors := registry.NewContributors()
		if err := contributors.Register(registry.Contributor{
			Name:            "catalog",
			Package:         r.cfg.CallerPackage,
			ContractVersion: "v1",
			Source:          store,
		}); err != nil {
			return err
		}
		p := registry.NewProvider(contributors.Source(), resolver,
			registry.WithLogger(logger),
			registry.WithExtraIntentAction(r.cfg.ExtraIntentAction),
		)
		return fn(ctx, p)
	})
}

func (r *Runner) logger() *log.Logger {
	if !r.cfg.Verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(r.errOut, "tiledash: ", log.LstdFlags)
}

func (r *Runner) writeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *Runner) printLaunch(_ context.Context, plan launch.Plan) error {
	switch p := plan.(type) {
	case launch.Direct:
		_, _ = fmt.Fprintf(r.out, "launch\tdirect\t%s\n", describeIntent(p.Intent))
	case launch.AsUser:
		_, _ = fmt.Fprintf(r.out, "launch\tuser=%d\t%s\n", p.User, describeIntent(p.Intent))
	default:
		return fmt.Errorf("cannot dispatch %s plan", plan.Kind())
	}
	return nil
}

func describeIntent(intent model.Intent) string {
	if intent.HasComponent() {
		return intent.Component.Flatten()
	}
	return intent.Action
}

func itemResponse(item tile.DisplayItem) api.ItemResponse {
	resp := api.ItemResponse{
		Key:      item.Key,
		Title:    item.Title,
		Summary:  item.Summary,
		Icon:     item.Icon,
		Kind:     string(item.Kind),
		Fragment: item.Fragment,
	}
	if item.Order != tile.OrderUnset {
		order := item.Order
		group := tile.PriorityGroup(order)
		resp.Order = &order
		resp.PriorityGroup = &group
	}
	if item.Launch != nil {
		intent := item.Launch.Intent()
		resp.Action = intent.Action
		if intent.HasComponent() {
			resp.Component = intent.Component.Flatten()
		}
	}
	return resp
}

func planResponse(outcome launch.Outcome) api.PlanResponse {
	resp := api.PlanResponse{State: string(outcome.State)}
	if outcome.Plan == nil {
		return resp
	}
	resp.Kind = string(outcome.Plan.Kind())
	var intent model.Intent
	switch p := outcome.Plan.(type) {
	case launch.Direct:
		intent = p.Intent
	case launch.AsUser:
		intent = p.Intent
		u := int(p.User)
		resp.User = &u
	case launch.ChooseProfile:
		intent = p.Intent
		for _, c := range p.Candidates {
			resp.Candidates = append(resp.Candidates, int(c))
		}
	}
	resp.Action = intent.Action
	if intent.HasComponent() {
		resp.Component = intent.Component.Flatten()
	}
	return resp
}
