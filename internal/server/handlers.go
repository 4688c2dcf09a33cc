package server

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gnolang/asymptote/internal"
	"github.com/gnolang/asymptote/internal/types"
)

const requestIDHeader = "X-Request-ID"

type AnalyzeRequest struct {
	Filename string `json:"filename" validate:"required,supported"`
	Source   string `json:"source" validate:"required,max=1048576"`
	Mode     string `json:"mode" validate:"omitempty,oneof=worst best avg average all"`
	Method   string `json:"method" validate:"omitempty,oneof=auto master iteration tree recursion_tree characteristic"`
}

type AnalyzeResponse struct {
	RequestID string                  `json:"requestId"`
	Results   []*types.AnalysisResult `json:"results"`
}

type TreeRequest struct {
	Filename  string `json:"filename" validate:"required,supported"`
	Source    string `json:"source" validate:"required,max=1048576"`
	Procedure string `json:"procedure"`
	Depth     int    `json:"depth" validate:"omitempty,min=1,max=8"`
}

type TreeResponse struct {
	RequestID string `json:"requestId"`
	DOT       string `json:"dot"`
}

type ErrorResponse struct {
	RequestID string `json:"requestId"`
	Error     string `json:"error"`
	Code      string `json:"code"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("supported", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		return internal.Supported(name) && filepath.Base(name) == name
	})
	return v
}

// requestID reuses the caller's X-Request-ID or assigns a fresh one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	id := c.GetString(requestIDHeader)
	logger := s.log.With(zap.String("request_id", id))

	var req AnalyzeRequest
	if !s.bind(c, &req) {
		return
	}

	mode, err := types.ParseMode(req.Mode)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	engine := s.engine
	if req.Method != "" {
		method, err := types.ParseMethod(req.Method)
		if err != nil {
			s.fail(c, http.StatusBadRequest, err)
			return
		}
		engine = engine.WithMethod(method)
	}

	results, err := engine.RunSource(req.Filename, []byte(req.Source), mode)
	if err != nil {
		logger.Warn("analysis rejected", zap.String("file", req.Filename), zap.Error(err))
		s.fail(c, http.StatusUnprocessableEntity, err)
		return
	}

	for _, r := range results {
		s.metrics.analyses.WithLabelValues(string(r.Kind), string(r.Mode)).Inc()
		if r.Failure != nil {
			s.metrics.failures.WithLabelValues(string(r.Failure.Code)).Inc()
		}
	}
	logger.Debug("analyzed", zap.String("file", req.Filename), zap.Int("procedures", len(results)))

	c.JSON(http.StatusOK, AnalyzeResponse{RequestID: id, Results: results})
}

func (s *Server) handleTree(c *gin.Context) {
	var req TreeRequest
	if !s.bind(c, &req) {
		return
	}

	dot, err := s.engine.Tree(req.Filename, []byte(req.Source), req.Procedure, req.Depth)
	if err != nil {
		s.fail(c, http.StatusUnprocessableEntity, err)
		return
	}
	c.JSON(http.StatusOK, TreeResponse{RequestID: c.GetString(requestIDHeader), DOT: dot})
}

// bind decodes and validates the JSON body, answering 400 on failure.
func (s *Server) bind(c *gin.Context, req any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 2*MaxSourceBytes)
	if err := c.ShouldBindJSON(req); err != nil {
		s.fail(c, http.StatusBadRequest, types.Errorf(types.CodeInvalidInput, "invalid request body"))
		return false
	}
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		msg := err.Error()
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, strings.ToLower(fe.Field())+" failed "+fe.Tag())
			}
			msg = strings.Join(fields, "; ")
		}
		s.fail(c, http.StatusBadRequest, types.Errorf(types.CodeInvalidInput, "%s", msg))
		return false
	}
	return true
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	ae := types.AsAnalysisError(err)
	s.metrics.failures.WithLabelValues(string(ae.Code)).Inc()
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.GetString(requestIDHeader),
		Error:     ae.Error(),
		Code:      string(ae.Code),
	})
}
