package httpadapter

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/couchcryptid/carpark-etl/internal/domain"
)

type api struct {
	snapshots SnapshotSource
	logger    *slog.Logger
}

// newAPI builds the gin engine serving /api/v1.
func newAPI(snapshots SnapshotSource, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))

	a := &api{snapshots: snapshots, logger: logger}

	v1 := engine.Group("/api/v1")
	v1.Use(requireSnapshot(snapshots))
	carparks := v1.Group("/carparks")
	{
		carparks.GET("", a.handleSearch)
		carparks.GET("/:id", a.handleGetCarpark)
		carparks.GET("/:id/last-update", a.handleLastUpdate)
	}

	return engine
}

// snapshotKey holds the snapshot pinned for the lifetime of one request.
const snapshotKey = "snapshot"

func requireSnapshot(src SnapshotSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := src.Current()
		if snap == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "car park data not loaded yet"})
			return
		}
		c.Set(snapshotKey, snap)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("api request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func snapshotFrom(c *gin.Context) *domain.Snapshot {
	return c.MustGet(snapshotKey).(*domain.Snapshot)
}

func meta(snap *domain.Snapshot) gin.H {
	return gin.H{
		"run_id":         snap.RunID,
		"built_at":       snap.BuiltAt.UTC().Format(time.RFC3339),
		"feed_timestamp": snap.FeedTimestamp,
	}
}

// handleSearch returns car parks whose address contains the query, ignoring case.
// GET /api/v1/carparks?address=
func (a *api) handleSearch(c *gin.Context) {
	needle, ok := c.GetQuery("address")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address query parameter is required"})
		return
	}

	snap := snapshotFrom(c)
	results := snap.Query.ByAddressSubstring(needle)

	m := meta(snap)
	m["count"] = len(results)
	c.JSON(http.StatusOK, gin.H{
		"data": results,
		"meta": m,
	})
}

// handleGetCarpark returns one car park with its live availability.
// GET /api/v1/carparks/:id
func (a *api) handleGetCarpark(c *gin.Context) {
	snap := snapshotFrom(c)
	rec, ok := snap.Query.ByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "car park not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": rec,
		"meta": meta(snap),
	})
}

// handleLastUpdate returns the feed update time of one car park. The time is
// null when the car park is known but had no entry in the last feed pull.
// GET /api/v1/carparks/:id/last-update
func (a *api) handleLastUpdate(c *gin.Context) {
	id := c.Param("id")
	snap := snapshotFrom(c)
	updated, found := snap.Query.LastUpdate(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "car park not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			domain.ColumnID:         id,
			domain.ColumnUpdateTime: updated,
		},
		"meta": meta(snap),
	})
}
