package web

import (
	"encoding/json"
	"log"
	"net/http"
	"sort"
)

// LabelRow is one row of the label table.
type LabelRow struct {
	Filename string `json:"filename"`
	Label    int    `json:"label"`
}

// Group is one equivalence class with its members.
type Group struct {
	Label     int      `json:"label"`
	Files     []string `json:"files"`
	Duplicate bool     `json:"duplicate"` // true when the class has more than one member
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: encoding response: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	rows := make([]LabelRow, 0, len(s.result.Labels))
	for file, label := range s.result.Labels {
		rows = append(rows, LabelRow{Filename: file, Label: label})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Label != rows[j].Label {
			return rows[i].Label < rows[j].Label
		}
		return rows[i].Filename < rows[j].Filename
	})
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	byLabel := make(map[int][]string)
	for file, label := range s.result.Labels {
		byLabel[label] = append(byLabel[label], file)
	}

	groups := make([]Group, 0, len(byLabel))
	for label, files := range byLabel {
		sort.Strings(files)
		groups = append(groups, Group{
			Label:     label,
			Files:     files,
			Duplicate: len(files) > 1,
		})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Label < groups[j].Label })
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.result.Scores)
}
