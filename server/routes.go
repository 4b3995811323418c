package server

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Route is one registered method and pattern.
type Route struct {
	Method  string
	Pattern string
}

// Routes lists every route of router, sorted by pattern then method.
func Routes(router chi.Routes) ([]Route, error) {
	var routes []Route
	err := chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		// chi регистрирует "/x/" для Route("/x").Get("/")
		if len(route) > 1 {
			route = strings.TrimSuffix(route, "/")
		}
		routes = append(routes, Route{Method: method, Pattern: route})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk routes: %w", err)
	}

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Pattern != routes[j].Pattern {
			return routes[i].Pattern < routes[j].Pattern
		}
		return routes[i].Method < routes[j].Method
	})
	return routes, nil
}

// ExportRoutes writes the route table to w, one "METHOD pattern" per line.
func ExportRoutes(router chi.Routes, w io.Writer) error {
	routes, err := Routes(router)
	if err != nil {
		return err
	}
	for _, rt := range routes {
		if _, err := fmt.Fprintf(w, "%-7s %s\n", rt.Method, rt.Pattern); err != nil {
			return err
		}
	}
	return nil
}
