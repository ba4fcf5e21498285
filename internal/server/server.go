// Package server exposes claim processing and reference lookups over HTTP.
package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/gyeh/myelin/internal/claim"
	"github.com/gyeh/myelin/internal/icd"
	"github.com/gyeh/myelin/internal/model"
	"github.com/gyeh/myelin/internal/normalize"
	"github.com/gyeh/myelin/internal/pipeline"
	"github.com/gyeh/myelin/internal/refdata"
)

const maxBody = 4 << 20

// Server serves the HTTP surface over one orchestrator and the holder it
// reads from.
type Server struct {
	orch     *pipeline.Orchestrator
	holder   *refdata.Holder
	resolver *refdata.Resolver
	log      zerolog.Logger
}

// New builds a Server.
func New(orch *pipeline.Orchestrator, holder *refdata.Holder, log zerolog.Logger) *Server {
	return &Server{orch: orch, holder: holder, resolver: refdata.NewResolver(holder), log: log}
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, s.requestLog)

	r.Get("/healthz", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/claims/process", s.process)
		r.Post("/claims/convert", s.convert)
		r.Get("/providers/{variant}/{id}", s.provider)
	})
	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

type healthResponse struct {
	Status   string                `json:"status"`
	Snapshot string                `json:"snapshot,omitempty"`
	Seq      uint64                `json:"seq,omitempty"`
	BuiltAt  *time.Time            `json:"built_at,omitempty"`
	Records  map[model.Variant]int `json:"records,omitempty"`
	Edges    int                   `json:"edges"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if snap := s.holder.Load(); snap != nil {
		built := snap.BuiltAt()
		resp.Snapshot = snap.ID().String()
		resp.Seq = snap.Seq()
		resp.BuiltAt = &built
		resp.Records = make(map[model.Variant]int, len(model.AllVariants))
		for _, v := range model.AllVariants {
			resp.Records[v] = snap.Records(v)
		}
		if m := snap.Mapper(); m != nil {
			resp.Edges = m.Len()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	c, err := readClaim(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.orch.Run(r.Context(), c)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type convertResponse struct {
	Result *icd.Result  `json:"result"`
	Claim  *claim.Claim `json:"claim"`
}

// convert runs only the code conversion. ?target= (and ?billed=) override
// the claim's icd_convert block.
func (s *Server) convert(w http.ResponseWriter, r *http.Request) {
	c, err := readClaim(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	d, ok := icd.DirectiveFor(c)
	if t := r.URL.Query().Get("target"); t != "" {
		d = icd.Directive{Mode: claim.ConvertAuto, Target: t}
		if b := r.URL.Query().Get("billed"); b != "" {
			d.Mode, d.Billed = claim.ConvertManual, b
		}
		ok = true
	}
	if !ok {
		s.fail(w, r, claim.Reject(c.ClaimID, "icd_convert", "required", "no conversion requested"))
		return
	}

	cv, err := s.orch.Converter()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := cv.GenerateClaimMappings(c, d)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convertResponse{Result: res, Claim: icd.ApplyMappings(c, res)})
}

type providerResponse struct {
	Variant model.Variant        `json:"variant"`
	ID      string               `json:"id"`
	Date    string               `json:"date"`
	Record  model.ProviderRecord `json:"record"`
}

// provider resolves /v1/providers/{variant}/{id}?date=YYYY-MM-DD. A
// ten digit id is an NPI, anything else a CCN. date defaults to today.
func (s *Server) provider(w http.ResponseWriter, r *http.Request) {
	v, err := model.ParseVariant(chi.URLParam(r, "variant"))
	if err != nil {
		s.fail(w, r, claim.Reject("", "variant", "oneof", "%s", err))
		return
	}
	raw := chi.URLParam(r, "id")
	id := refdata.NewIdentifier(raw, "")
	if npi := normalize.NPI(raw); len(npi) == 10 {
		id = refdata.NewIdentifier("", npi)
	}

	date := time.Now().UTC()
	if q := r.URL.Query().Get("date"); q != "" {
		d, err := time.Parse("2006-01-02", q)
		if err != nil {
			s.fail(w, r, claim.Reject("", "date", "datetime", "date %q: want YYYY-MM-DD", q))
			return
		}
		date = d
	}
	date = normalize.Day(date)

	rec, err := s.resolver.Resolve(id, date, v, model.Override{})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, providerResponse{Variant: v, ID: id.String(), Date: date.Format("2006-01-02"), Record: rec})
}

func readClaim(r *http.Request) (*claim.Claim, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return claim.Decode(body)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	ev := s.log.Warn()
	if status >= http.StatusInternalServerError {
		ev = s.log.Error()
	}
	ev.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	writeJSON(w, status, errorBody{Error: errorDetail{Kind: pipeline.ErrorKind(err), Message: err.Error()}})
}

func statusOf(err error) int {
	var (
		ve *claim.ValidationError
		ce *icd.ConversionError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &ce):
		return http.StatusUnprocessableEntity
	case errors.Is(err, refdata.ErrReferenceDataNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
