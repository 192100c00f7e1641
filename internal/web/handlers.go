package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	publipostage "github.com/jlllyfish/ink-publipostage-grist"
	"github.com/jlllyfish/ink-publipostage-grist/internal/grist"
	"github.com/jlllyfish/ink-publipostage-grist/internal/logging"
	"github.com/jlllyfish/ink-publipostage-grist/internal/store"
)

// credentialsRequest carries per-request Grist credentials.
// Credentials never live in server configuration; the caller supplies them
// on every data source operation.
type credentialsRequest struct {
	APIKey string `json:"api_key"`
	DocID  string `json:"doc_id"`
}

func (c credentialsRequest) credentials() grist.Credentials {
	return grist.Credentials{APIKey: c.APIKey, DocID: c.DocID}
}

// mergeRequest carries the template, assets, and row data shared by the
// preview and generation endpoints.
type mergeRequest struct {
	credentialsRequest
	TemplateContent string           `json:"template_content"`
	TemplateCSS     string           `json:"template_css"`
	TemplateFormat  string           `json:"template_format"`
	RecordData      publipostage.Row `json:"record_data"`
	Logo            string           `json:"logo"`
	Signature       string           `json:"signature"`
	ServiceName     string           `json:"service_name"`
	FilenamePattern string           `json:"filename_pattern"`
	TableID         string           `json:"table_id"`
	ApplyFilter     bool             `json:"apply_filter"`
}

func (m mergeRequest) template() publipostage.Template {
	return publipostage.Template{
		Body:   m.TemplateContent,
		CSS:    m.TemplateCSS,
		Format: m.TemplateFormat,
	}
}

func (m mergeRequest) assets() publipostage.Assets {
	return publipostage.Assets{
		Logo:        m.Logo,
		Signature:   m.Signature,
		ServiceName: m.ServiceName,
	}
}

// decodeBody parses a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		respondInput(w, "no data received")
		return
	}
	if !req.credentials().Valid() {
		respondInput(w, "API key and doc ID are required")
		return
	}

	if err := s.grist.TestConnection(r.Context(), req.credentials()); err != nil {
		respondError(w, r, err, "Grist connection failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Grist connection succeeded",
	})
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		respondInput(w, "no data received")
		return
	}
	if !req.credentials().Valid() {
		respondInput(w, "API key and doc ID are required")
		return
	}

	tables, err := s.grist.ListTables(r.Context(), req.credentials())
	if err != nil {
		respondError(w, r, err, "failed to list tables")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tables":  tables,
	})
}

func (s *Server) handleListColumns(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		respondInput(w, "no data received")
		return
	}
	if !req.credentials().Valid() {
		respondInput(w, "API key and doc ID are required")
		return
	}

	columns, err := s.grist.ListColumns(r.Context(), req.credentials(), chi.URLParam(r, "tableID"))
	if err != nil {
		respondError(w, r, err, "failed to list columns")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"columns": columns,
	})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		respondInput(w, "no data received")
		return
	}
	if !req.credentials().Valid() {
		respondInput(w, "API key and doc ID are required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := s.grist.ListRows(r.Context(), req.credentials(), chi.URLParam(r, "tableID"), limit)
	if err != nil {
		respondError(w, r, err, "failed to list records")
		return
	}

	if r.URL.Query().Get("filter") != "true" {
		respondJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"records":  rows,
			"count":    len(rows),
			"filtered": false,
		})
		return
	}

	filtered, total, kept := publipostage.ApplyFilter(rows, publipostage.FilterSpec{
		Enabled: true,
		Column:  s.filterColumn,
	})
	respondJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"records":       filtered,
		"count":         kept,
		"total_count":   total,
		"filtered":      true,
		"filter_column": s.filterColumn,
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := decodeBody(r, &req); err != nil {
		respondInput(w, "no data received")
		return
	}
	if req.TemplateContent == "" {
		respondInput(w, "template is empty")
		return
	}

	html, _, err := s.composeDocument(r.Context(), req)
	if err != nil {
		respondError(w, r, err, "preview failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"html":    html,
	})
}

func (s *Server) handleGeneratePDF(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := decodeBody(r, &req); err != nil {
		respondInput(w, "no data received")
		return
	}
	if req.TemplateContent == "" {
		respondInput(w, "template is empty")
		return
	}
	if len(req.RecordData) == 0 {
		respondInput(w, "no record data provided")
		return
	}

	tpl, err := publipostage.NormalizeTemplate(r.Context(), req.template())
	if err != nil {
		respondError(w, r, err, "invalid template")
		return
	}

	pattern := req.FilenamePattern
	if pattern == "" {
		pattern = "document"
	}
	renderReq := publipostage.BuildRenderRequest(tpl, req.RecordData, req.assets(), pattern, 1)

	ctx, cancel := context.WithTimeout(r.Context(), s.renderTimeout)
	defer cancel()

	renderer := s.pool.Acquire()
	defer s.pool.Release(renderer)

	pdf, err := renderer.Render(ctx, renderReq)
	if err != nil {
		respondError(w, r, err, "PDF generation failed")
		return
	}

	logging.FromContext(r.Context()).Info("document generated",
		"filename", renderReq.Filename,
		"bytes", len(pdf),
	)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+renderReq.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (s *Server) handleGenerateMultiple(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := decodeBody(r, &req); err != nil {
		respondInput(w, "no data received")
		return
	}
	if !req.credentials().Valid() {
		respondInput(w, "API key and doc ID are required")
		return
	}
	if req.TemplateContent == "" {
		respondInput(w, "template is empty")
		return
	}
	if req.TableID == "" {
		respondInput(w, "no table specified")
		return
	}

	rows, err := s.grist.ListRows(r.Context(), req.credentials(), req.TableID, 0)
	if err != nil {
		respondError(w, r, err, "failed to fetch records")
		return
	}

	pattern := req.FilenamePattern
	if pattern == "" {
		pattern = "document_{index}"
	}
	filter := publipostage.FilterSpec{Enabled: req.ApplyFilter, Column: s.filterColumn}

	result, err := publipostage.RunBatch(r.Context(), rows, req.template(), req.assets(), pattern, filter, s.pool)
	if err != nil {
		respondError(w, r, err, "batch generation failed")
		return
	}

	logging.FromContext(r.Context()).Info("batch generated",
		"batch_id", result.ID,
		"table_id", req.TableID,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+result.ArchiveName+`"`)
	w.Header().Set("X-Batch-ID", result.ID)
	w.Header().Set("X-Generated-Count", strconv.Itoa(result.Succeeded))
	w.Header().Set("X-Failed-Count", strconv.Itoa(result.Failed))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Archive)
}

func (s *Server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		mergeRequest
		TemplateName string `json:"template_name"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondInput(w, "no data received")
		return
	}
	if req.TemplateName == "" || req.TemplateContent == "" {
		respondInput(w, "template name and content are required")
		return
	}

	err := s.store.Save(r.Context(), store.Template{
		Name:        req.TemplateName,
		Content:     req.TemplateContent,
		CSS:         req.TemplateCSS,
		Logo:        req.Logo,
		Signature:   req.Signature,
		ServiceName: req.ServiceName,
		TableID:     req.TableID,
	})
	if err != nil {
		respondError(w, r, err, "failed to save template")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "template saved",
	})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.List(r.Context())
	if err != nil {
		respondError(w, r, err, "failed to list templates")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"templates": names,
	})
}

func (s *Server) handleLoadTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.store.Load(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err, "failed to load template")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"template": tpl,
	})
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.store.Delete(r.Context(), name); err != nil {
		respondError(w, r, err, "failed to delete template")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "template " + name + " deleted",
	})
}

func (s *Server) handleFilterColumn(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"filter_column": s.filterColumn,
	})
}

// composeDocument runs the merge for one row and returns the standalone
// HTML document plus the resolved filename. Used by the preview endpoint;
// the same composition runs inside the renderer for PDF generation, which
// is what keeps preview and final output identical.
func (s *Server) composeDocument(ctx context.Context, req mergeRequest) (string, string, error) {
	tpl, err := publipostage.NormalizeTemplate(ctx, req.template())
	if err != nil {
		return "", "", err
	}

	pattern := req.FilenamePattern
	if pattern == "" {
		pattern = "document"
	}
	renderReq := publipostage.BuildRenderRequest(tpl, req.RecordData, req.assets(), pattern, 1)

	html, err := publipostage.BuildDocument(renderReq, s.fontCSS)
	if err != nil {
		return "", "", err
	}
	return html, renderReq.Filename, nil
}
