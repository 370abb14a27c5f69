package main

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SetupRoutes configures HTTP routes. clientDir may be empty to disable
// static serving; publicURL overrides the join-link host in QR codes.
func SetupRoutes(hub *Hub, clientDir, publicURL string) http.Handler {
	r := mux.NewRouter()
	r.Use(corsMiddleware)

	// WebSocket endpoint
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		ip := extractIP(req)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			log.Printf("upgrade error: %v", err)
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	// Join-link QR code for a room, scannable from a phone
	r.HandleFunc("/qr/{code}", func(w http.ResponseWriter, req *http.Request) {
		code := strings.ToUpper(mux.Vars(req)["code"])
		if hub.registry.Get(code) == nil {
			http.NotFound(w, req)
			return
		}
		base := publicURL
		if base == "" {
			base = "http://" + req.Host
		}
		png, err := qrcode.Encode(base+"/?room="+code, qrcode.Medium, 256)
		if err != nil {
			http.Error(w, "qr encoding failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	})

	r.HandleFunc("/api/rooms", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, hub.registry.ListRooms())
	})

	r.HandleFunc("/api/history", func(w http.ResponseWriter, req *http.Request) {
		if hub.history == nil {
			writeJSON(w, []MatchRecord{})
			return
		}
		records, err := hub.history.Recent(20)
		if err != nil {
			http.Error(w, "history unavailable", http.StatusInternalServerError)
			return
		}
		writeJSON(w, records)
	})

	// Serve static client files with no-cache so browsers always revalidate
	if clientDir != "" {
		fs := http.FileServer(http.Dir(clientDir))
		r.PathPrefix("/").Handler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			if req.URL.Path == "/" {
				http.ServeFile(w, req, filepath.Join(clientDir, "index.html"))
				return
			}
			fs.ServeHTTP(w, req)
		}))
	}

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")

		// Websocket upgrades skip further CORS handling
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}
