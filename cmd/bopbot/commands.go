package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tomyan/bopbot/internal/actions"
	"github.com/tomyan/bopbot/internal/chrome/launcher"
	"github.com/tomyan/bopbot/internal/dom"
	"github.com/tomyan/bopbot/internal/fsutil"
	"github.com/tomyan/bopbot/internal/session"
	"github.com/tomyan/bopbot/internal/stealth"
)

func (a *app) launchConfig() (*launcher.LaunchConfig, error) {
	opts, err := a.cfg.LaunchOptions()
	if err != nil {
		return nil, err
	}
	return launcher.NewLaunchConfig(opts)
}

// sessionConfig is the configured session with any --fingerprint overrides
// applied on top.
func (a *app) sessionConfig() (session.Config, error) {
	cfg := a.cfg.SessionConfig()
	if a.fingerprint == "" {
		return cfg, nil
	}

	var o stealth.Overrides
	if err := fsutil.LoadJSON(a.fingerprint, &o); err != nil {
		return session.Config{}, err
	}
	if o.UserAgent != "" {
		cfg.Overrides.UserAgent = o.UserAgent
	}
	if len(o.Platforms) > 0 {
		cfg.Overrides.Platforms = o.Platforms
	}
	if len(o.Media) > 0 && cfg.Overrides.Media == nil {
		cfg.Overrides.Media = make(map[string]bool, len(o.Media))
	}
	for k, v := range o.Media {
		cfg.Overrides.Media[k] = v
	}
	return cfg, nil
}

// withDriver launches a browser, runs fn and always shuts the browser down.
func (a *app) withDriver(ctx context.Context, fn func(*session.Driver) error) error {
	lc, err := a.launchConfig()
	if err != nil {
		return err
	}
	sessCfg, err := a.sessionConfig()
	if err != nil {
		return err
	}

	d := session.NewDriver(lc, session.DriverOptions{
		Session:    sessCfg,
		Supervisor: a.cfg.SupervisorOptions(a.logger),
		Logger:     a.logger,
	})
	if err := d.Launch(ctx); err != nil {
		return err
	}
	defer func() {
		if err := d.Close(context.WithoutCancel(ctx)); err != nil {
			a.logger.Warn("shutdown failed", zap.Error(err))
		}
	}()

	return fn(d)
}

func (a *app) actions(d *session.Driver) *actions.Actions {
	act := actions.New(d.Session(), a.cfg.Actions.AnimationTimeout, a.logger)
	act.Dir = a.cfg.Actions.ScreenshotDir
	act.TypingDelay = a.cfg.Actions.TypingDelay
	return act
}

func newVisitCmd(a *app) *cobra.Command {
	var (
		screenshot string
		dump       string
		regenerate bool
	)
	cmd := &cobra.Command{
		Use:   "visit <url>",
		Short: "Open a page and print the user agent it was served with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := args[0]
			err := a.withDriver(cmd.Context(), func(d *session.Driver) error {
				if err := d.Session().Navigate(cmd.Context(), url, regenerate); err != nil {
					return err
				}
				result := VisitResult{URL: url, UserAgent: d.Session().UserAgent()}
				if screenshot != "" {
					if err := a.actions(d).Screenshot(cmd.Context(), screenshot); err != nil {
						return err
					}
					result.Screenshot = screenshot + "-capture.png"
				}
				if dump != "" {
					filename, err := fsutil.DumpJSON(result, dump)
					if err != nil {
						return err
					}
					a.logger.Info("result dumped", zap.String("file", filename))
				}
				return outputResult(a.stdout, result)
			})
			if err != nil {
				return a.fail(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&screenshot, "screenshot", "", "save <name>-capture.png after loading")
	cmd.Flags().StringVar(&dump, "dump", "", "also write the result to <name>.json")
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "generate a fresh fingerprint before loading")
	return cmd
}

func newExistsCmd(a *app) *cobra.Command {
	var (
		label string
		path  []string
		wait  bool
	)
	cmd := &cobra.Command{
		Use:   "exists <url>",
		Short: "Report whether a selector matches on a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := dom.New(label, path)
			if err != nil {
				return a.fail(err)
			}
			url := args[0]

			err = a.withDriver(cmd.Context(), func(d *session.Driver) error {
				if err := d.Goto(cmd.Context(), url); err != nil {
					return err
				}
				act := a.actions(d)
				if wait {
					if err := act.WaitForElement(cmd.Context(), sel, false); err != nil {
						return err
					}
				}

				result := ExistsResult{URL: url, Label: sel.Label(), Selector: sel.String()}
				result.Exists = act.SelectorExists(cmd.Context(), sel)
				if result.Exists {
					visible, err := act.SelectorVisible(cmd.Context(), sel)
					if err != nil {
						return err
					}
					result.Visible = visible
				}
				return outputResult(a.stdout, result)
			})
			if err != nil {
				return a.fail(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "selector label (letters and underscores)")
	cmd.Flags().StringSliceVar(&path, "path", nil, "selector path segments, comma separated")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait up to the animation timeout for the element")
	_ = cmd.MarkFlagRequired("label")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func newFillCmd(a *app) *cobra.Command {
	var (
		label      string
		path       []string
		text       string
		clearFirst bool
	)
	cmd := &cobra.Command{
		Use:   "fill <url>",
		Short: "Type text into an input on a page at the configured typing delay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := dom.New(label, path)
			if err != nil {
				return a.fail(err)
			}
			url := args[0]

			err = a.withDriver(cmd.Context(), func(d *session.Driver) error {
				if err := d.Goto(cmd.Context(), url); err != nil {
					return err
				}
				act := a.actions(d)
				if clearFirst {
					if err := act.WaitForElement(cmd.Context(), sel, true); err != nil {
						return err
					}
					if err := act.Clear(cmd.Context(), sel); err != nil {
						return err
					}
				}
				if err := act.Type(cmd.Context(), sel, text, -1); err != nil {
					return err
				}
				value, err := act.Query(cmd.Context(), sel, "value")
				if err != nil {
					return err
				}
				result := FillResult{URL: url, Label: sel.Label(), Selector: sel.String()}
				result.Value, _ = value.(string)
				return outputResult(a.stdout, result)
			})
			if err != nil {
				return a.fail(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "selector label (letters and underscores)")
	cmd.Flags().StringSliceVar(&path, "path", nil, "selector path segments, comma separated")
	cmd.Flags().StringVar(&text, "text", "", "text to type")
	cmd.Flags().BoolVar(&clearFirst, "clear", false, "clear the current value first")
	_ = cmd.MarkFlagRequired("label")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func newUserAgentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "user-agent",
		Short: "Print a generated user agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.sessionConfig()
			if err != nil {
				return a.fail(err)
			}
			ua := cfg.Overrides.UserAgent
			if ua == "" {
				ua = cfg.UserAgent
			}
			if ua == "" {
				ua = stealth.DefaultUserAgent()
			}
			return outputResult(a.stdout, UserAgentResult{UserAgent: ua})
		},
	}
}

func newArgsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "args",
		Short: "Print the browser command line without launching it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lc, err := a.launchConfig()
			if err != nil {
				return a.fail(err)
			}
			sup := launcher.NewSupervisor(lc, a.cfg.SupervisorOptions(a.logger))
			a.logger.Debug("resolved launch config",
				zap.String("platform", string(lc.Platform())),
				zap.String("profile", lc.ProfilePath()))
			if err := outputResult(a.stdout, ArgsResult{Headless: lc.Headless().String(), Command: sup.Command()}); err != nil {
				return a.fail(fmt.Errorf("writing result: %w", err))
			}
			return nil
		},
	}
}
