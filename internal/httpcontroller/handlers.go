package httpcontroller

import (
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/labelgrid/internal/conf"
	"github.com/tphakala/labelgrid/internal/dataset"
	"github.com/tphakala/labelgrid/internal/errors"
	"github.com/tphakala/labelgrid/internal/logger"
	"github.com/tphakala/labelgrid/internal/previewcache"
	"github.com/tphakala/labelgrid/internal/securefs"
	"github.com/tphakala/labelgrid/internal/thumbnail"
)

// imageView is one captioned cell of the image grid.
type imageView struct {
	Src     string
	Href    string
	Caption string
	Name    string
	Size    int64
}

// dashboardData is passed to the dashboard template.
type dashboardData struct {
	Title       string
	Settings    *conf.Settings
	Selection   selection
	Versions    []conf.DatasetVersion
	Labelspaces []conf.Labelspace
	Labels      dataset.LabelTable
	Page        dataset.Page
	PageCount   int
	Images      []imageView
	PageBytes   int64
	Preview     dataset.ItemTable
	ChartURL    string
	Snapshot    *previewcache.Snapshot
	Stats       previewcache.Stats
}

// handleDashboard renders the dashboard for the current selection and
// remembers it in the session.
func (s *Server) handleDashboard(c echo.Context) error {
	sess := s.session(c)
	sel, err := s.resolveSelection(c, sess)
	if err != nil {
		return err
	}

	snap, err := s.Cache.Get(c.Request().Context(), sel.query())
	if err != nil {
		return err
	}

	pageCount := dataset.PageCount(snap.Labels)
	if sel.Page < 0 || sel.Page >= pageCount {
		// a remembered page may not exist under a new sample or version
		sel.Page = 0
	}

	data := dashboardData{
		Title:       s.Settings.Main.Name,
		Settings:    s.Settings,
		Selection:   sel,
		Versions:    conf.SupportedVersions,
		Labelspaces: []conf.Labelspace{conf.LabelspaceObserved, conf.LabelspaceDeclared},
		Labels:      snap.Labels,
		PageCount:   pageCount,
		ChartURL:    chartURL(sel),
		Snapshot:    snap,
		Stats:       s.Cache.Stats(),
	}

	if pageCount > 0 {
		page, err := dataset.SelectPage(snap.Items, snap.Labels, sel.Page)
		if err != nil {
			return err
		}
		s.recordPageSelection(sel.Version, nil)
		data.Page = page
		data.Images, data.PageBytes = s.imageViews(sel, page)
		data.Preview = pageItems(snap.Items, page.LabelID).Head(s.Settings.UI.PreviewRows)
	}

	s.saveSelection(c, sess, sel)
	return c.Render(http.StatusOK, "dashboard", data)
}

// imageViews builds grid cells for page. Items outside the dataset root
// are skipped.
func (s *Server) imageViews(sel selection, page dataset.Page) ([]imageView, int64) {
	sfs, err := s.root(sel.Version)
	if err != nil {
		GetLogger().Warn("cannot link page images", logger.Error(err))
		return nil, 0
	}

	views := make([]imageView, 0, len(page.Paths))
	var total int64
	for i, path := range page.Paths {
		rel, err := sfs.RelativePath(path)
		if err != nil {
			GetLogger().Warn("item outside dataset root",
				logger.String("path", path),
				logger.Error(err))
			continue
		}

		v := imageView{
			Href:    assetURL("/media", sel.Version, rel),
			Caption: page.Names[i],
			Name:    filepath.Base(rel),
		}
		if s.Settings.Thumbnails.Enabled {
			v.Src = assetURL("/thumbs", sel.Version, rel) + "?w=" + strconv.Itoa(sel.Width)
		} else {
			v.Src = v.Href
		}
		if info, err := sfs.Stat(rel); err == nil {
			v.Size = info.Size()
			total += v.Size
		}
		views = append(views, v)
	}
	return views, total
}

// pageItems returns the items of one label in table order.
func pageItems(items dataset.ItemTable, labelID string) dataset.ItemTable {
	out := dataset.ItemTable{}
	for _, it := range items {
		if it.LabelID == labelID {
			out = append(out, it)
		}
	}
	return out
}

// assetURL joins prefix, version and a root-relative path with each path
// segment escaped.
func assetURL(prefix string, version conf.DatasetVersion, rel string) string {
	segments := strings.Split(filepath.ToSlash(rel), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return prefix + "/" + version.String() + "/" + strings.Join(segments, "/")
}

func chartURL(sel selection) string {
	q := url.Values{}
	q.Set(keySample, strconv.Itoa(sel.Sample))
	q.Set(keyLabelspace, sel.Labelspace.String())
	return "/chart/" + sel.Version.String() + ".png?" + q.Encode()
}

// labelsResponse is the body of GET /api/v1/labels.
type labelsResponse struct {
	Query     previewcache.Query   `json:"query"`
	Labels    []dataset.LabelCount `json:"labels"`
	Items     int                  `json:"items"`
	IndexedAt time.Time            `json:"indexed_at"`
}

// handleLabels returns the label table with per-label item counts.
func (s *Server) handleLabels(c echo.Context) error {
	snap, err := s.snapshot(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, labelsResponse{
		Query:     snap.Query,
		Labels:    snap.Counts,
		Items:     len(snap.Items),
		IndexedAt: snap.IndexedAt,
	})
}

// pageResponse is the body of GET /api/v1/page.
type pageResponse struct {
	dataset.Page
	PageCount int `json:"page_count"`
}

// handlePage returns the paths and names of one page. An out of range
// page is a 404.
func (s *Server) handlePage(c echo.Context) error {
	sel, snap, err := s.selectionSnapshot(c)
	if err != nil {
		return err
	}

	page, err := dataset.SelectPage(snap.Items, snap.Labels, sel.Page)
	s.recordPageSelection(sel.Version, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pageResponse{
		Page:      page,
		PageCount: dataset.PageCount(snap.Labels),
	})
}

// itemsResponse is the body of GET /api/v1/items.
type itemsResponse struct {
	Query previewcache.Query `json:"query"`
	Total int                `json:"total"`
	Items dataset.ItemTable  `json:"items"`
}

// handleItems returns the first rows of the item table.
func (s *Server) handleItems(c echo.Context) error {
	limit := s.Settings.UI.PreviewRows
	if v := c.QueryParam("limit"); v != "" {
		n, err := parseIntParam("limit", v)
		if err != nil {
			return err
		}
		if n < 0 {
			return errors.ValidationError(fmt.Sprintf("parameter limit must not be negative, got %d", n))
		}
		limit = n
	}

	snap, err := s.snapshot(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, itemsResponse{
		Query: snap.Query,
		Total: len(snap.Items),
		Items: snap.Items.Head(limit),
	})
}

// handleMedia serves an original image from a dataset root.
func (s *Server) handleMedia(c echo.Context) error {
	sfs, err := s.versionRoot(c)
	if err != nil {
		return err
	}
	rel, err := wildcardPath(c)
	if err != nil {
		return err
	}
	return sfs.ServeRelativeFile(c, rel)
}

// handleThumbnail serves an image scaled to the w query parameter.
func (s *Server) handleThumbnail(c echo.Context) error {
	sfs, err := s.versionRoot(c)
	if err != nil {
		return err
	}

	width := s.Settings.UI.Width.Default
	if v := c.QueryParam("w"); v != "" {
		if width, err = parseIntParam("w", v); err != nil {
			return err
		}
	}

	raw, err := wildcardPath(c)
	if err != nil {
		return err
	}
	rel, err := sfs.ValidateRelativePath(raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid file path").SetInternal(err)
	}

	data, err := s.Thumbs.Render(sfs.Fs(), filepath.ToSlash(rel), width)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, thumbnail.ContentType, data)
}

// handleChart renders the per-label count chart of a selection.
func (s *Server) handleChart(c echo.Context) error {
	name := c.Param("name")
	v, ok := strings.CutSuffix(name, ".png")
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "chart must be a .png")
	}
	version, err := conf.ParseDatasetVersion(v)
	if err != nil {
		return err
	}

	sel, err := s.resolveSelection(c, nil)
	if err != nil {
		return err
	}
	sel.Version = version

	snap, err := s.Cache.Get(c.Request().Context(), sel.query())
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%s: up to %d images per label", titleFunc(version.String()), sel.Sample)
	data, err := s.Charts.Render(snap.Counts, title)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "image/png", data)
}

// reindexResponse is the body of POST /api/v1/reindex.
type reindexResponse struct {
	Version string `json:"version,omitempty"`
	Dropped int    `json:"dropped"`
}

// handleReindex drops cached tables of one version, or of all versions when
// none is given, so the next request rescans the dataset.
func (s *Server) handleReindex(c echo.Context) error {
	v := c.QueryParam(keyVersion)
	if v == "" {
		dropped := s.Cache.Stats().Entries
		s.Cache.Flush()
		return c.JSON(http.StatusOK, reindexResponse{Dropped: dropped})
	}

	version, err := conf.ParseDatasetVersion(v)
	if err != nil {
		return err
	}
	dropped := s.Cache.Invalidate(version, previewcache.ReasonManual)
	return c.JSON(http.StatusOK, reindexResponse{Version: version.String(), Dropped: dropped})
}

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status   string             `json:"status"`
	Uptime   string             `json:"uptime"`
	Versions []string           `json:"versions"`
	Cache    previewcache.Stats `json:"cache"`
}

// handleHealth reports liveness and which dataset roots are served.
func (s *Server) handleHealth(c echo.Context) error {
	versions := []string{}
	for _, v := range conf.SupportedVersions {
		if _, ok := s.roots[v]; ok {
			versions = append(versions, v.String())
		}
	}
	return c.JSON(http.StatusOK, healthResponse{
		Status:   "ok",
		Uptime:   time.Since(s.startedAt).Round(time.Second).String(),
		Versions: versions,
		Cache:    s.Cache.Stats(),
	})
}

// snapshot resolves the query string against config defaults and returns
// the indexed tables.
func (s *Server) snapshot(c echo.Context) (*previewcache.Snapshot, error) {
	_, snap, err := s.selectionSnapshot(c)
	return snap, err
}

func (s *Server) selectionSnapshot(c echo.Context) (selection, *previewcache.Snapshot, error) {
	sel, err := s.resolveSelection(c, nil)
	if err != nil {
		return sel, nil, err
	}
	snap, err := s.Cache.Get(c.Request().Context(), sel.query())
	if err != nil {
		return sel, nil, err
	}
	return sel, snap, nil
}

// wildcardPath returns the unescaped * path parameter.
func wildcardPath(c echo.Context) (string, error) {
	p, err := url.PathUnescape(c.Param("*"))
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "Invalid file path").SetInternal(err)
	}
	return p, nil
}

// versionRoot returns the sandbox named by the :version path parameter.
func (s *Server) versionRoot(c echo.Context) (*securefs.SecureFS, error) {
	version, err := conf.ParseDatasetVersion(c.Param("version"))
	if err != nil {
		return nil, err
	}
	return s.root(version)
}

func (s *Server) recordPageSelection(version conf.DatasetVersion, err error) {
	if s.Metrics != nil {
		s.Metrics.Dataset.RecordPageSelection(version.String(), err)
	}
}
