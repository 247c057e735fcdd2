package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"

	"github.com/flarexio/ragblade"
	"github.com/flarexio/ragblade/vector"
)

// StatusOf maps service errors to HTTP status codes.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, vector.ErrInput),
		errors.Is(err, ragblade.ErrResetNotConfirmed):
		return http.StatusBadRequest

	default:
		return http.StatusExpectationFailed
	}
}

func abort(c *gin.Context, code int, err error) {
	c.String(code, err.Error())
	c.Error(err)
	c.Abort()
}

func parseFilter(raw string) (vector.Filter, error) {
	if raw == "" {
		return nil, nil
	}

	var where vector.Filter
	if err := json.Unmarshal([]byte(raw), &where); err != nil {
		return nil, err
	}

	return where, nil
}

func AddDocumentsHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ragblade.AddDocumentsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, StatusOf(err), err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ids": resp})
	}
}

type QueryParams struct {
	Query string `form:"q" binding:"required"`
	K     int    `form:"k"`
	Where string `form:"where"`
}

func QueryHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params QueryParams
		if err := c.ShouldBindQuery(&params); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		where, err := parseFilter(params.Where)
		if err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		req := ragblade.QueryRequest{
			Query: params.Query,
			K:     params.K,
			Where: where,
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, StatusOf(err), err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"results": resp})
	}
}

type ListIDsParams struct {
	IDs   []string `form:"ids"`
	Where string   `form:"where"`
	Limit int      `form:"limit"`
}

func ListIDsHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params ListIDsParams
		if err := c.ShouldBindQuery(&params); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		where, err := parseFilter(params.Where)
		if err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		req := ragblade.ListIDsRequest{
			IDs:   params.IDs,
			Where: where,
			Limit: params.Limit,
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, StatusOf(err), err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ids": resp})
	}
}

func CountHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		resp, err := endpoint(ctx, nil)
		if err != nil {
			abort(c, StatusOf(err), err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"count": resp})
	}
}

func SetCollectionHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ragblade.SetCollectionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		ctx := c.Request.Context()
		_, err := endpoint(ctx, req)
		if err != nil {
			abort(c, StatusOf(err), err)
			return
		}

		c.String(http.StatusOK, "OK")
	}
}

func ResetHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ragblade.ResetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		ctx := c.Request.Context()
		_, err := endpoint(ctx, req)
		if err != nil {
			abort(c, StatusOf(err), err)
			return
		}

		c.String(http.StatusOK, "OK")
	}
}
