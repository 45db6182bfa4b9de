package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/acs/internal/live"
	"github.com/desertthunder/acs/internal/models"
	"github.com/desertthunder/acs/internal/repositories"
	"github.com/desertthunder/acs/internal/services"
	"github.com/desertthunder/acs/internal/shared"
	"github.com/desertthunder/acs/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	db         *sql.DB
	store      services.TokenStore
	client     *services.Client
	users      *repositories.UserRepository
	cache      *repositories.ThreadCacheRepository
	open       live.Opener
	sub        *live.Subscriber
	streamErr  chan error
	generation *tasks.GenerationEngine
	feedback   *tasks.FeedbackEngine
	export     *tasks.ExportEngine
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A nil DB keeps credentials in memory and disables the local cache.
type RunnerOpts struct {
	Config     *shared.Config
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) (*Runner, error) {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	r := &Runner{
		config:     opts.Config,
		db:         opts.DB,
		store:      services.NewMemoryTokenStore(nil),
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		streamErr:  make(chan error, 1),
	}

	if opts.DB != nil {
		r.store = repositories.NewCredentialRepository(opts.DB)
		r.users = repositories.NewUserRepository(opts.DB)
		r.cache = repositories.NewThreadCacheRepository(opts.DB)
	}

	if err := r.wire(); err != nil {
		return nil, err
	}
	return r, nil
}

// wire builds the API client, the live opener and the engines around the current logger.
func (r *Runner) wire() error {
	client, err := services.NewClient(services.GatewayOpts{
		BaseURL:          r.config.API.BaseURL,
		HTTPClient:       r.httpClient,
		Timeout:          r.config.API.Timeout(),
		Store:            r.store,
		Logger:           shared.WithLogger(r.logger, "component", "gateway"),
		OnSessionExpired: r.sessionExpired,
	})
	if err != nil {
		return err
	}
	r.client = client

	r.open = live.OpenerFor(live.Options{
		URL:               r.config.API.StreamPath,
		BaseURL:           r.config.API.BaseURL,
		Token:             r.accessToken,
		HTTPClient:        r.httpClient,
		Logger:            shared.WithLogger(r.logger, "component", "live"),
		ReconnectInterval: r.config.Stream.ReconnectInterval(),
		Buffer:            r.config.Stream.Buffer,
		OnError:           r.streamFailed,
	})
	if r.sub != nil {
		r.sub.Close()
	}
	r.sub = live.NewSubscriber(r.open)

	r.generation = tasks.NewGenerationEngine(client.Content, r.streamOpener, 0)
	r.feedback = tasks.NewFeedbackEngine(client.Content, r.generation)
	r.export = tasks.NewExportEngine(client.Threads)
	return nil
}

// SetLogger replaces the runner's logger, as when the TUI takes over the terminal.
func (r *Runner) SetLogger(l *log.Logger) error {
	r.logger = l
	return r.wire()
}

func (r *Runner) sessionExpired(err error) {
	r.logger.Warn("session expired, sign in again", "error", err)
	if r.users == nil {
		return
	}
	if cerr := r.users.Clear(); cerr != nil {
		r.logger.Error("failed to clear cached user", "error", cerr)
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, configCommand, authCommand, threadsCommand, contentCommand, streamCommand, watchCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) accessToken() (string, error) {
	token, err := r.client.Auth.Token()
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// currentUser returns the cached profile of the signed-in account.
func (r *Runner) currentUser() (*models.User, error) {
	if r.users == nil {
		return nil, fmt.Errorf("%w: local database not available", shared.ErrServiceUnavailable)
	}
	return r.users.Current()
}

// openStream scopes the runner's live channel to the signed-in user,
// closing whichever channel it held before.
func (r *Runner) openStream(ctx context.Context) (*live.Channel, error) {
	user, err := r.currentUser()
	if err != nil {
		return nil, err
	}
	for len(r.streamErr) > 0 {
		<-r.streamErr
	}
	return r.sub.Rescope(ctx, user.ID(), true)
}

// streamOpener opens a channel owned by the generation engine, separate from
// the runner's subscription.
func (r *Runner) streamOpener(ctx context.Context) (tasks.Stream, error) {
	user, err := r.currentUser()
	if err != nil {
		return nil, err
	}
	ch, err := r.open(ctx, user.ID())
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// streamFailed records errors the channel will not recover from.
func (r *Runner) streamFailed(err error) {
	var statusErr *live.StatusError
	if !errors.As(err, &statusErr) || !statusErr.Permanent() {
		return
	}
	select {
	case r.streamErr <- err:
	default:
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// Close releases the live subscription and the local database.
func (r *Runner) Close() error {
	if r.sub != nil {
		r.sub.Close()
	}
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}
