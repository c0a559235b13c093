package opener

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/anyfs/anyfs/pkg/fserrors"
	"github.com/anyfs/anyfs/pkg/vfs"
	"github.com/anyfs/anyfs/pkg/wrapfs"
)

// Opener opens a filesystem for the protocols it declares.
type Opener interface {
	// Protocols lists the URL protocols this opener serves.
	Protocols() []string
	// OpenFS opens a filesystem from a parsed FS URL. The create flag
	// asks for the backing resource to be created if absent.
	OpenFS(ctx context.Context, result *ParseResult, create bool) (vfs.FS, error)
}

// Registry maps protocols to openers.
type Registry struct {
	mu              sync.RWMutex
	openers         map[string]Opener
	defaultProtocol string
	logger          *zap.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDefaultProtocol sets the protocol assumed for URLs with no
// protocol part. The default is "osfs", so a bare string is treated as
// a system path.
func WithDefaultProtocol(protocol string) RegistryOption {
	return func(r *Registry) { r.defaultProtocol = protocol }
}

// WithLogger attaches a logger for open diagnostics.
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		openers:         map[string]Opener{},
		defaultProtocol: "osfs",
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds an opener for each of its protocols, replacing any
// previous registration.
func (r *Registry) Register(o Opener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, protocol := range o.Protocols() {
		r.openers[protocol] = o
	}
}

// Protocols lists the registered protocols.
func (r *Registry) Protocols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.openers))
	for protocol := range r.openers {
		out = append(out, protocol)
	}
	return out
}

func (r *Registry) opener(protocol string) (Opener, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.openers[protocol]
	if !ok {
		return nil, fserrors.Unsupported("protocol '" + protocol + "'")
	}
	return o, nil
}

// Open opens the filesystem named by an FS URL and returns it together
// with the URL's !path component ("" when absent). A URL without a
// protocol part is treated as a path for the default protocol.
func (r *Registry) Open(ctx context.Context, fsURL string, create bool) (vfs.FS, string, error) {
	if !strings.Contains(fsURL, "://") {
		fsURL = r.defaultProtocol + "://" + fsURL
	}
	result, err := Parse(fsURL)
	if err != nil {
		return nil, "", err
	}
	o, err := r.opener(result.Protocol)
	if err != nil {
		return nil, "", err
	}
	r.logger.Debug("opening filesystem",
		zap.String("protocol", result.Protocol),
		zap.String("resource", result.Resource))
	fsys, err := o.OpenFS(ctx, result, create)
	if err != nil {
		return nil, "", err
	}
	return fsys, result.Path, nil
}

// OpenFS opens the filesystem named by an FS URL. A !path component is
// resolved to a view on that directory which closes the parent when
// closed; with create set the directory is made first.
func (r *Registry) OpenFS(ctx context.Context, fsURL string, create bool) (vfs.FS, error) {
	fsys, path, err := r.Open(ctx, fsURL, create)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return fsys, nil
	}
	if create {
		if err := vfs.MakeDirs(ctx, fsys, path, 0o755, true); err != nil {
			fsys.Close()
			return nil, err
		}
	}
	sub, err := wrapfs.ClosingSub(ctx, fsys, path)
	if err != nil {
		fsys.Close()
		return nil, err
	}
	return sub, nil
}

// Default is the registry with the built-in backends registered.
var Default = func() *Registry {
	r := NewRegistry()
	r.Register(&memOpener{})
	r.Register(&osOpener{})
	r.Register(&tempOpener{})
	r.Register(&s3Opener{})
	return r
}()

// OpenFS opens an FS URL against the default registry.
func OpenFS(ctx context.Context, fsURL string, create bool) (vfs.FS, error) {
	return Default.OpenFS(ctx, fsURL, create)
}
