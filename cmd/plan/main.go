package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pbaille/plan/internal/api"
	"github.com/pbaille/plan/internal/config"
	"github.com/pbaille/plan/internal/domain"
	"github.com/pbaille/plan/internal/fetcher"
	"github.com/pbaille/plan/internal/hierarchy"
	"github.com/pbaille/plan/internal/logging"
	"github.com/pbaille/plan/internal/planfile"
	"github.com/pbaille/plan/internal/planner"
	"github.com/pbaille/plan/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	dbPath string
	loader *config.Loader
	cfg    config.Config
	logger *logging.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "plan",
		Short:        "Travel plans with drag-to-reorder plan items",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loader = config.NewLoader()
			var err error
			cfg, err = loader.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			logger = logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default from config, ~/.plan/plan.db)")

	rootCmd.AddCommand(experienceCmd())
	rootCmd.AddCommand(itemCmd())
	rootCmd.AddCommand(moveCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getStore() (*store.Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return store.New(cfg.DBPath)
}

func newPlanner(s *store.Store) (*planner.Planner, error) {
	p := planner.New(s, logger)
	if err := p.SetThresholds(cfg.Thresholds); err != nil {
		return nil, err
	}
	return p, nil
}

func experienceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "experience",
		Aliases: []string{"exp"},
		Short:   "Manage experiences",
	}

	var dest string
	add := &cobra.Command{
		Use:   "add [name]",
		Short: "Create an experience",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			exp, err := s.AddExperience(strings.Join(args, " "), dest)
			if err != nil {
				return err
			}
			fmt.Printf("Added experience: %s\n", shortID(exp.ID))
			return nil
		},
	}
	add.Flags().StringVarP(&dest, "dest", "d", "", "destination")

	list := &cobra.Command{
		Use:   "list",
		Short: "List experiences",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			exps, err := s.ListExperiences()
			if err != nil {
				return err
			}
			if len(exps) == 0 {
				fmt.Println("No experiences yet. Use 'plan experience add' to create one.")
				return nil
			}
			printExperiences(os.Stdout, exps)
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func itemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Manage plan items",
	}

	var (
		parent string
		cost   float64
		days   int
		link   string
	)
	add := &cobra.Command{
		Use:   "add [experience] [text]",
		Short: "Append a plan item",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			exp, err := s.ResolveExperience(args[0])
			if err != nil {
				return err
			}

			text := strings.Join(args[1:], " ")
			if strings.TrimSpace(text) == "" && link != "" {
				fmt.Print("Fetching title... ")
				title, err := fetcher.New().Title(link)
				if err != nil {
					fmt.Printf("failed: %v\n", err)
					return fmt.Errorf("text is required when the title cannot be fetched")
				}
				fmt.Println("done")
				text = title
			}

			item := domain.PlanItem{Text: text, Cost: cost, PlanningDays: days, URL: link}
			if parent != "" {
				items, err := s.ListPlanItems(exp.ID)
				if err != nil {
					return err
				}
				pid, err := resolveItem(items, parent)
				if err != nil {
					return err
				}
				item.Parent = &pid
			}

			added, err := s.AddPlanItem(exp.ID, item)
			if err != nil {
				return err
			}
			fmt.Printf("Added item: %s\n", shortID(added.ID))
			fmt.Printf("Text: %s\n", truncate(added.Text, 80))
			return nil
		},
	}
	add.Flags().StringVarP(&parent, "parent", "p", "", "parent item id (prefix)")
	add.Flags().Float64Var(&cost, "cost", 0, "estimated cost")
	add.Flags().IntVar(&days, "days", 0, "planning days")
	add.Flags().StringVar(&link, "url", "", "link; its page title is used when no text is given")

	var expand []string
	list := &cobra.Command{
		Use:   "list [experience]",
		Short: "Show the plan as a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			exp, err := s.ResolveExperience(args[0])
			if err != nil {
				return err
			}
			items, err := s.ListPlanItems(exp.ID)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("No plan items yet. Use 'plan item add' to create one.")
				return nil
			}

			expanded, err := expandedIDs(items, expand)
			if err != nil {
				return err
			}
			printTree(os.Stdout, hierarchy.Flatten(items, expanded), "", hierarchy.ChangeNone)
			return nil
		},
	}
	list.Flags().StringSliceVarP(&expand, "expand", "e", nil, "only expand these parents (default: all)")

	rm := &cobra.Command{
		Use:   "rm [experience] [item]",
		Short: "Remove a plan item; its children become root items",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			exp, err := s.ResolveExperience(args[0])
			if err != nil {
				return err
			}
			items, err := s.ListPlanItems(exp.ID)
			if err != nil {
				return err
			}
			id, err := resolveItem(items, args[1])
			if err != nil {
				return err
			}
			if err := s.DeletePlanItem(exp.ID, id); err != nil {
				return err
			}
			fmt.Printf("Removed item: %s\n", shortID(id))
			return nil
		},
	}

	cmd.AddCommand(add, list, rm)
	return cmd
}

func moveCmd() *cobra.Command {
	var (
		dx     float64
		expand []string
	)

	cmd := &cobra.Command{
		Use:   "move [experience] [item] [onto]",
		Short: "Drop an item onto another; --dx drags it sideways to nest or promote",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			exp, err := s.ResolveExperience(args[0])
			if err != nil {
				return err
			}
			items, err := s.ListPlanItems(exp.ID)
			if err != nil {
				return err
			}
			active, err := resolveItem(items, args[1])
			if err != nil {
				return err
			}
			over, err := resolveItem(items, args[2])
			if err != nil {
				return err
			}
			expanded := make([]string, 0, len(expand))
			for _, e := range expand {
				id, err := resolveItem(items, e)
				if err != nil {
					return err
				}
				expanded = append(expanded, id)
			}

			p, err := newPlanner(s)
			if err != nil {
				return err
			}
			res, err := p.Drop(exp.ID, domain.DragEvent{
				ActiveID: active,
				OverID:   over,
				DeltaX:   dx,
				Expanded: expanded,
			})
			if err != nil {
				return err
			}
			if !res.Changed {
				fmt.Println("Nothing to move.")
				return nil
			}

			fmt.Printf("Moved %s (%s)\n", shortID(res.MovedID), res.Intent.Kind)
			all, _ := expandedIDs(res.Items, nil)
			printTree(os.Stdout, hierarchy.Flatten(res.Items, all), res.MovedID, res.Change())
			return nil
		},
	}

	cmd.Flags().Float64Var(&dx, "dx", 0, "horizontal drag offset in pixels")
	cmd.Flags().StringSliceVarP(&expand, "expand", "e", nil, "parent ids expanded while dragging")
	return cmd
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [experience] [file]",
		Short: "Write an experience's plan to a YAML file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			exp, err := s.ResolveExperience(args[0])
			if err != nil {
				return err
			}
			items, err := s.ListPlanItems(exp.ID)
			if err != nil {
				return err
			}
			if err := planfile.Write(args[1], planfile.File{Experience: *exp, Items: items}); err != nil {
				return err
			}
			fmt.Printf("Exported %d items to %s\n", len(items), args[1])
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Create an experience from a YAML plan file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := planfile.Read(args[0])
			if err != nil {
				return err
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			exp, err := importPlan(s, f)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d items into experience %s\n", len(f.Items), shortID(exp.ID))
			return nil
		},
	}
}

// importPlan adds every item as a root first, then restores parents and
// order in one replace, since children may precede their parent in the file.
func importPlan(s *store.Store, f planfile.File) (*domain.Experience, error) {
	exp, err := s.AddExperience(f.Experience.Name, f.Experience.Destination)
	if err != nil {
		return nil, err
	}

	newIDs := make(map[string]string, len(f.Items))
	for _, it := range f.Items {
		added, err := s.AddPlanItem(exp.ID, domain.PlanItem{
			Text:         it.Text,
			Cost:         it.Cost,
			PlanningDays: it.PlanningDays,
			URL:          it.URL,
		})
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", it.ID, err)
		}
		newIDs[it.ID] = added.ID
	}

	items := make([]domain.PlanItem, len(f.Items))
	for i, it := range f.Items {
		items[i] = it.Clone()
		items[i].ID = newIDs[it.ID]
		if !it.IsRoot() {
			pid := newIDs[it.ParentID()]
			items[i].Parent = &pid
		}
	}
	if err := s.ReplacePlanItems(exp.ID, items); err != nil {
		return nil, err
	}
	return exp, nil
}

func serveCmd() *cobra.Command {
	var (
		addr  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			p, err := newPlanner(s)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") {
				addr = cfg.Addr
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			if watch && loader.File() != "" {
				logger.Infof("watching %s", loader.File())
				loader.Watch(func(c config.Config) {
					if err := p.SetThresholds(c.Thresholds); err != nil {
						logger.Warnf("config reload: %v", err)
					}
				}, func(err error) {
					logger.Warnf("config reload: %v", err)
				})
			}

			p.OnReorder(logReorder(logger.With("reorder")))

			server := api.New(s, p, fetcher.New(), logger, addr)
			g.Go(func() error {
				return server.Run(ctx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "server address")
	cmd.Flags().BoolVar(&watch, "watch-config", false, "reload thresholds when the config file changes")
	return cmd
}

// logReorder reports every persisted move with its hierarchy change
func logReorder(l *logging.Logger) planner.ReorderHook {
	return func(experienceID string, res hierarchy.Result) {
		parent := "root"
		for _, it := range res.Items {
			if it.ID == res.MovedID && !it.IsRoot() {
				parent = shortID(it.ParentID())
			}
		}
		l.Infof("experience %s: %s moved, %s, parent %s", shortID(experienceID), shortID(res.MovedID), res.Change(), parent)
	}
}
