// Command canopyvoxapi serves the result-query HTTP service of
// SPEC_FULL.md §4.11: loading finished .sparsevox runs on demand and
// answering bounding-box voxel queries. Adapted from the teacher's
// cmd/api + runner packages, with gin's role unchanged but the gRPC
// cluster-runner client replaced by an in-process resultcache.Cache —
// there is no generated stub code to keep faithful to here, since this
// service was never gRPC-shaped in the spec, only analogous in role.
package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mattj23/canopy-vox/internal/resultcache"
)

func main() {
	addr := flag.String("addr", ":8090", "HTTP listen address")
	maxRuns := flag.Int("max-runs", 10, "maximum number of loaded runs kept in memory")
	flag.Parse()

	cache := resultcache.New(*maxRuns, 30*time.Minute, 5*time.Minute)
	defer cache.Close()

	r := gin.Default()

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/runs", func(c *gin.Context) {
		c.JSON(http.StatusOK, cache.List())
	})

	r.POST("/runs/:id/load", func(c *gin.Context) {
		var req struct {
			Path string `json:"path"`
		}
		if err := c.BindJSON(&req); err != nil || req.Path == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "a non-empty \"path\" is required"})
			return
		}

		run, err := cache.Load(c.Param("id"), req.Path)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "voxelCount": len(run.Voxels)})
	})

	// POST /runs/load accepts the same body as /runs/:id/load but omits
	// the operator-chosen id, generating one instead (SPEC_FULL.md's Run
	// id glossary entry: "operator-chosen or UUID-generated").
	r.POST("/runs/load", func(c *gin.Context) {
		var req struct {
			Path string `json:"path"`
		}
		if err := c.BindJSON(&req); err != nil || req.Path == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "a non-empty \"path\" is required"})
			return
		}

		id := uuid.NewString()
		run, err := cache.Load(id, req.Path)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "voxelCount": len(run.Voxels)})
	})

	r.GET("/runs/:id/voxels", func(c *gin.Context) {
		run, ok := cache.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not loaded"})
			return
		}

		imin, imax, err1 := parseRange(c, "imin", "imax")
		jmin, jmax, err2 := parseRange(c, "jmin", "jmax")
		kmin, kmax, err3 := parseRange(c, "kmin", "kmax")
		if err1 != nil || err2 != nil || err3 != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bounding box parameters"})
			return
		}

		c.JSON(http.StatusOK, run.QueryBox(imin, imax, jmin, jmax, kmin, kmax))
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := r.Run(*addr); err != nil {
			os.Exit(1)
		}
	}()

	<-quit
}

func parseRange(c *gin.Context, minKey, maxKey string) (int32, int32, error) {
	minVal, err := strconv.ParseInt(c.Query(minKey), 10, 32)
	if err != nil {
		return 0, 0, err
	}
	maxVal, err := strconv.ParseInt(c.Query(maxKey), 10, 32)
	if err != nil {
		return 0, 0, err
	}
	return int32(minVal), int32(maxVal), nil
}
