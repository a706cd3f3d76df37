package httpcontroller

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/tphakala/labelgrid/internal/conf"
	"github.com/tphakala/labelgrid/internal/errors"
	"github.com/tphakala/labelgrid/internal/logger"
	"github.com/tphakala/labelgrid/internal/previewcache"
)

const (
	sessionName   = "labelgrid"
	sessionMaxAge = 30 * 24 * 60 * 60
)

// Session value keys.
const (
	keyVersion    = "version"
	keySample     = "sample"
	keyWidth      = "width"
	keyShuffle    = "shuffle"
	keyLabelspace = "labelspace"
	keyPage       = "page"
)

// selection is the state of the dashboard controls.
type selection struct {
	Version    conf.DatasetVersion
	Sample     int
	Width      int
	Shuffle    bool
	Labelspace conf.Labelspace
	Page       int
}

// query returns the cache query of the selection.
func (sel selection) query() previewcache.Query {
	return previewcache.Query{
		Version:        sel.Version,
		SamplePerLabel: sel.Sample,
		Labelspace:     sel.Labelspace,
		Shuffle:        sel.Shuffle,
	}
}

// newSessionStore returns a cookie store keyed by secret.
func newSessionStore(secret string) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// defaultSelection returns the configured starting state.
func (s *Server) defaultSelection() selection {
	ui := s.Settings.UI
	version, err := conf.ParseDatasetVersion(s.Settings.Dataset.Version)
	if err != nil {
		version = conf.VersionTiny
	}
	space, err := conf.ParseLabelspace(s.Settings.Dataset.Labelspace)
	if err != nil {
		space = conf.LabelspaceObserved
	}
	return selection{
		Version:    version,
		Sample:     ui.Sample.Clamp(s.Settings.Dataset.SamplePerLabel),
		Width:      ui.Width.Clamp(ui.Width.Default),
		Shuffle:    s.Settings.Dataset.Shuffle,
		Labelspace: space,
	}
}

// session returns the request's session. A cookie that fails to decode,
// for example after a secret change, yields a fresh session.
func (s *Server) session(c echo.Context) *sessions.Session {
	sess, err := s.store.Get(c.Request(), sessionName)
	if err != nil {
		GetLogger().Debug("discarding unreadable session", logger.Error(err))
	}
	return sess
}

// applySession overlays values remembered in the session. Stale or foreign
// values are ignored.
func (sel *selection) applySession(values map[any]any, ui conf.UISettings) {
	if v, ok := values[keyVersion].(string); ok {
		if version, err := conf.ParseDatasetVersion(v); err == nil {
			sel.Version = version
		}
	}
	if v, ok := values[keySample].(int); ok {
		sel.Sample = ui.Sample.Clamp(v)
	}
	if v, ok := values[keyWidth].(int); ok {
		sel.Width = ui.Width.Clamp(v)
	}
	if v, ok := values[keyShuffle].(bool); ok {
		sel.Shuffle = v
	}
	if v, ok := values[keyLabelspace].(string); ok {
		if space, err := conf.ParseLabelspace(v); err == nil {
			sel.Labelspace = space
		}
	}
	if v, ok := values[keyPage].(int); ok && v >= 0 {
		sel.Page = v
	}
}

// applyQuery overlays query parameters. Unlike session values, malformed
// parameters are errors. Slider values are clamped to their ranges.
func (sel *selection) applyQuery(q url.Values, ui conf.UISettings) error {
	if v := q.Get(keyVersion); v != "" {
		version, err := conf.ParseDatasetVersion(v)
		if err != nil {
			return err
		}
		sel.Version = version
	}
	if v := q.Get(keySample); v != "" {
		n, err := parseIntParam(keySample, v)
		if err != nil {
			return err
		}
		sel.Sample = ui.Sample.Clamp(n)
	}
	if v := q.Get(keyWidth); v != "" {
		n, err := parseIntParam(keyWidth, v)
		if err != nil {
			return err
		}
		sel.Width = ui.Width.Clamp(n)
	}
	if v := q.Get(keyShuffle); v != "" {
		shuffle, err := conf.ParseShuffle(v)
		if err != nil {
			return err
		}
		sel.Shuffle = shuffle
	}
	if v := q.Get(keyLabelspace); v != "" {
		space, err := conf.ParseLabelspace(v)
		if err != nil {
			// a bad request parameter, not a broken config
			return errors.ValidationError(err.Error())
		}
		sel.Labelspace = space
	}
	if v := q.Get(keyPage); v != "" {
		n, err := parseIntParam(keyPage, v)
		if err != nil {
			return err
		}
		sel.Page = n
	}
	return nil
}

// store writes the selection into the session values.
func (sel selection) store(values map[any]any) {
	values[keyVersion] = sel.Version.String()
	values[keySample] = sel.Sample
	values[keyWidth] = sel.Width
	values[keyShuffle] = sel.Shuffle
	values[keyLabelspace] = sel.Labelspace.String()
	values[keyPage] = sel.Page
}

// resolveSelection builds the selection from config defaults, then the
// session when sess is non-nil, then the query string.
func (s *Server) resolveSelection(c echo.Context, sess *sessions.Session) (selection, error) {
	sel := s.defaultSelection()
	if sess != nil {
		sel.applySession(sess.Values, s.Settings.UI)
	}
	if err := sel.applyQuery(c.QueryParams(), s.Settings.UI); err != nil {
		return sel, err
	}
	return sel, nil
}

// saveSelection remembers sel in the session cookie.
func (s *Server) saveSelection(c echo.Context, sess *sessions.Session, sel selection) {
	sel.store(sess.Values)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		GetLogger().Warn("failed to save session", logger.Error(err))
	}
}

func parseIntParam(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.ValidationError(fmt.Sprintf("parameter %s must be an integer, got %q", name, value))
	}
	return n, nil
}
