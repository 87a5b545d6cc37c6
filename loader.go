package mirrorplot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/sirupsen/logrus"
)

var (
	ErrUnavailable = errors.New("plot data unavailable")
	ErrMalformed   = errors.New("plot data malformed")
)

type LoadErrorKind int

const (
	// The resource could not be reached: transport error, non-2xx status or
	// missing file.
	Unavailable LoadErrorKind = iota + 1
	// The body was read but is not a dataset.
	Malformed
)

func (k LoadErrorKind) String() string {
	switch k {
	case Unavailable:
		return "unavailable"
	case Malformed:
		return "malformed"
	default:
		return fmt.Sprintf("LoadErrorKind(%d)", int(k))
	}
}

type LoadError struct {
	Kind    LoadErrorKind
	Locator string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", e.Locator, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is lets callers test the kind with errors.Is(err, ErrUnavailable) or
// errors.Is(err, ErrMalformed).
func (e *LoadError) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.Kind == Unavailable
	case ErrMalformed:
		return e.Kind == Malformed
	}

	return false
}

// A Loader fetches the dataset once. There is no retry and no timeout other
// than what the context imposes.
type Loader interface {
	Load(context.Context) (Dataset, error)
	Locator() string
}

type HTTPLoader struct {
	url    string
	client *http.Client
	logger logrus.FieldLogger
}

func NewHTTPLoader(rawURL string, client *http.Client) *HTTPLoader {
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPLoader{
		url:    rawURL,
		client: client,
		logger: logrus.WithFields(logrus.Fields{"tag": "HTTPLoader", "url": rawURL}),
	}
}

func (l *HTTPLoader) Load(ctx context.Context) (Dataset, error) {
	l.logger.Debug("fetching plot data")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, &LoadError{Kind: Unavailable, Locator: l.url, Err: err}
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &LoadError{Kind: Unavailable, Locator: l.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &LoadError{Kind: Unavailable, Locator: l.url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	dataset, err := DecodeDataset(resp.Body)
	if err != nil {
		// A body cut short by cancellation is not a parse failure.
		if ctx.Err() != nil {
			return nil, &LoadError{Kind: Unavailable, Locator: l.url, Err: ctx.Err()}
		}
		return nil, &LoadError{Kind: Malformed, Locator: l.url, Err: err}
	}

	l.logger.WithField("numRecords", len(dataset)).Debug("fetched plot data")
	return dataset, nil
}

func (l *HTTPLoader) Locator() string {
	return l.url
}

type FileLoader struct {
	path   string
	logger logrus.FieldLogger
}

func NewFileLoader(path string) *FileLoader {
	return &FileLoader{
		path:   path,
		logger: logrus.WithFields(logrus.Fields{"tag": "FileLoader", "path": path}),
	}
}

func (l *FileLoader) Load(ctx context.Context) (Dataset, error) {
	l.logger.Debug("reading plot data")

	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Kind: Unavailable, Locator: l.path, Err: err}
	}

	f, err := os.Open(l.path)
	if err != nil {
		return nil, &LoadError{Kind: Unavailable, Locator: l.path, Err: err}
	}
	defer f.Close()

	dataset, err := DecodeDataset(f)
	if err != nil {
		return nil, &LoadError{Kind: Malformed, Locator: l.path, Err: err}
	}

	l.logger.WithField("numRecords", len(dataset)).Debug("read plot data")
	return dataset, nil
}

func (l *FileLoader) Locator() string {
	return l.path
}

// Picks an HTTPLoader for http(s) URLs and a FileLoader for anything else.
func NewLoader(locator string, client *http.Client) Loader {
	u, err := url.Parse(locator)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return NewHTTPLoader(locator, client)
	}

	return NewFileLoader(locator)
}
