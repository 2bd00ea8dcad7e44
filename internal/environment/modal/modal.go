// Package modal runs verifier sandboxes on Modal.
package modal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/modal-labs/libmodal/modal-go"
	"github.com/spachava753/swarmreward/internal/environment"
)

const defaultAppName = "swarmreward"

// ProviderConfig holds Modal-specific configuration.
type ProviderConfig struct {
	// AppName is the Modal app that owns built images and sandboxes.
	AppName string
	// Regions restricts where sandboxes are scheduled, e.g. "us-east".
	Regions []string
	Verbose bool
}

// ParseProviderConfig reads scorer.environment.provider_config.
func ParseProviderConfig(config map[string]any) ProviderConfig {
	pc := ProviderConfig{AppName: defaultAppName}
	if v, ok := config["app_name"].(string); ok && v != "" {
		pc.AppName = v
	}
	if v, ok := config["region"].(string); ok {
		pc.Regions = []string{v}
	}
	if v, ok := config["regions"].([]any); ok {
		for _, r := range v {
			if s, ok := r.(string); ok {
				pc.Regions = append(pc.Regions, s)
			}
		}
	}
	if v, ok := config["verbose"].(bool); ok {
		pc.Verbose = v
	}
	return pc
}

// Provider implements environment.Provider with Modal sandboxes. Images
// built through BuildImage are cached by tag for the provider's lifetime.
type Provider struct {
	client *modal.Client
	config ProviderConfig

	mu     sync.Mutex
	app    *modal.App
	images map[string]*modal.Image
}

// NewProvider checks the local Modal setup and creates a client.
func NewProvider(config ProviderConfig) (*Provider, error) {
	if err := checkImageBuilderVersion(readCLIConfig); err != nil {
		return nil, err
	}
	if config.AppName == "" {
		config.AppName = defaultAppName
	}

	client, err := modal.NewClient()
	if err != nil {
		return nil, fmt.Errorf("creating modal client: %w", err)
	}
	return &Provider{
		client: client,
		config: config,
		images: make(map[string]*modal.Image),
	}, nil
}

func (p *Provider) Name() string {
	return "modal"
}

func (p *Provider) appHandle(ctx context.Context) (*modal.App, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.app != nil {
		return p.app, nil
	}

	app, err := p.client.Apps.FromName(ctx, p.config.AppName, &modal.AppFromNameParams{CreateIfMissing: true})
	if err != nil {
		return nil, fmt.Errorf("looking up modal app %s: %w", p.config.AppName, err)
	}
	p.app = app
	return app, nil
}

// BuildImage replays the Dockerfile in ContextDir on Modal and returns
// opts.Tag, which CreateEnvironment resolves to the built image.
func (p *Provider) BuildImage(ctx context.Context, opts environment.BuildImageOptions) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	content, err := os.ReadFile(filepath.Join(opts.ContextDir, "Dockerfile"))
	if err != nil {
		return "", fmt.Errorf("reading Dockerfile: %w", err)
	}
	baseImage, commands, err := parseDockerfile(string(content))
	if err != nil {
		return "", fmt.Errorf("parsing Dockerfile: %w", err)
	}

	app, err := p.appHandle(ctx)
	if err != nil {
		return "", err
	}

	slog.Debug("building modal image", "tag", opts.Tag, "base_image", baseImage, "commands", len(commands))
	image := p.client.Images.FromRegistry(baseImage, nil)
	if len(commands) > 0 {
		image = image.DockerfileCommands(commands, nil)
	}
	built, err := image.Build(ctx, app)
	if err != nil {
		return "", fmt.Errorf("building modal image: %w", err)
	}

	p.mu.Lock()
	p.images[opts.Tag] = built
	p.mu.Unlock()
	return opts.Tag, nil
}

// PullImage is a no-op; Modal pulls registry images when a sandbox starts.
func (p *Provider) PullImage(ctx context.Context, imageRef string) error {
	return nil
}

// CreateEnvironment starts a sandbox from a tag returned by BuildImage or
// from a registry reference.
func (p *Provider) CreateEnvironment(ctx context.Context, opts environment.CreateEnvironmentOptions) (environment.Environment, error) {
	app, err := p.appHandle(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	image, ok := p.images[opts.ImageRef]
	p.mu.Unlock()
	if !ok {
		image = p.client.Images.FromRegistry(opts.ImageRef, nil)
	}

	params := &modal.SandboxCreateParams{
		CPU:       float64(max(opts.CPUs, 1)),
		MemoryMiB: opts.MemoryMB,
		Env:       opts.Env,
		Timeout:   time.Hour,
		Verbose:   p.config.Verbose,
		Regions:   p.config.Regions,
	}
	if params.MemoryMiB <= 0 {
		params.MemoryMiB = 2048
	}

	sb, err := p.client.Sandboxes.Create(ctx, app, image, params)
	if err != nil {
		return nil, fmt.Errorf("creating modal sandbox: %w", err)
	}

	slog.Debug("modal sandbox created", "sandbox_id", sb.SandboxID, "name", opts.Name, "cpus", params.CPU, "memory_mib", params.MemoryMiB)
	return &Sandbox{sandbox: sb}, nil
}

// Sandbox is a running Modal sandbox.
type Sandbox struct {
	sandbox *modal.Sandbox
}

func (s *Sandbox) ID() string {
	return s.sandbox.SandboxID
}

// CopyTo writes a local file, or every file under a local directory,
// through the sandbox filesystem API.
func (s *Sandbox) CopyTo(ctx context.Context, src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if !info.IsDir() {
		return s.copyFile(ctx, src, dst)
	}

	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		return s.copyFile(ctx, path, filepath.Join(dst, rel))
	})
}

func (s *Sandbox) copyFile(ctx context.Context, src, dst string) error {
	content, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}

	if dir := filepath.Dir(dst); dir != "/" && dir != "." {
		if _, err := environment.Output(ctx, s, fmt.Sprintf("mkdir -p %q", dir), environment.ExecOptions{}); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	f, err := s.sandbox.Open(ctx, dst, "w")
	if err != nil {
		return fmt.Errorf("opening %s: %w", dst, err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	if err := f.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flushing %s: %w", dst, err)
	}
	return f.Close()
}

func (s *Sandbox) Exec(ctx context.Context, cmd string, stdout, stderr io.Writer, opts environment.ExecOptions) (int, error) {
	slog.Debug("modal exec", "sandbox_id", s.sandbox.SandboxID, "command", truncate(cmd, 100), "timeout", opts.Timeout)

	process, err := s.sandbox.Exec(ctx, []string{"bash", "-c", cmd}, &modal.SandboxExecParams{
		Env:     opts.Env,
		Timeout: opts.Timeout,
		Workdir: opts.WorkDir,
	})
	if err != nil {
		return -1, fmt.Errorf("executing command: %w", err)
	}

	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	var wg sync.WaitGroup
	wg.Go(func() { io.Copy(stdout, process.Stdout) })
	wg.Go(func() { io.Copy(stderr, process.Stderr) })
	wg.Wait()

	code, err := process.Wait(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return -1, ctxErr
		}
		// modal-go reports server-side exec timeouts only through the message.
		if opts.Timeout > 0 && (strings.Contains(err.Error(), "deadline") || strings.Contains(err.Error(), "timeout")) {
			return -1, fmt.Errorf("%w after %s: %v", environment.ErrTimeout, opts.Timeout, err)
		}
		return -1, fmt.Errorf("waiting for process: %w", err)
	}
	return code, nil
}

// Destroy terminates the sandbox. The app is left in place for later runs.
func (s *Sandbox) Destroy(ctx context.Context) error {
	slog.Debug("terminating modal sandbox", "sandbox_id", s.sandbox.SandboxID)
	err := s.sandbox.Terminate(ctx)
	if err != nil && !strings.Contains(err.Error(), "already terminated") && !strings.Contains(err.Error(), "not found") {
		return fmt.Errorf("terminating sandbox: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
