package transport

import (
	"encoding/json"
	"net/http"
)

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination derives totalPages from total and limit.
func NewPagination(page, limit, total int) *Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return &Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

type SuccessResponse struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Message    string      `json:"message,omitempty"`
}

type ErrorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteData(w http.ResponseWriter, status int, data interface{}) {
	WriteJSON(w, status, SuccessResponse{Success: true, Data: data})
}

func WriteMessage(w http.ResponseWriter, status int, data interface{}, message string) {
	WriteJSON(w, status, SuccessResponse{Success: true, Data: data, Message: message})
}

func WritePage(w http.ResponseWriter, data interface{}, pagination *Pagination) {
	WriteJSON(w, http.StatusOK, SuccessResponse{Success: true, Data: data, Pagination: pagination})
}

func WriteError(w http.ResponseWriter, status int, message string, details map[string]string) {
	WriteJSON(w, status, ErrorResponse{
		Error:   message,
		Details: details,
	})
}
