// mock-stt is a local stand-in for the transcription service. It
// accepts the multipart upload, logs what it received, and alternates
// between the plain-string and segment-list response shapes so both
// paths in the client get exercised.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"
)

type segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

var requestCount atomic.Uint64

func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart form
	err := r.ParseMultipartForm(32 << 20) // 32 MB
	if err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	segmentID := r.FormValue("segment_id")
	requestID := r.FormValue("request_id")
	sampleRate := r.FormValue("sample_rate")
	duration := r.FormValue("duration")
	windowStart := r.FormValue("window_start")
	windowEnd := r.FormValue("window_end")
	language := r.FormValue("language")
	model := r.FormValue("model")

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	n := requestCount.Add(1)

	log.Printf("🎤 TRANSCRIPTION REQUEST RECEIVED:")
	log.Printf("    Request ID: %s", requestID)
	log.Printf("    Segment ID: %s", segmentID)
	log.Printf("    Window: %s .. %s", windowStart, windowEnd)
	log.Printf("    Duration: %s", duration)
	log.Printf("    Sample Rate: %s", sampleRate)
	log.Printf("    Language: %s  Model: %s", language, model)
	log.Printf("    Filename: %s", header.Filename)
	log.Printf("    Audio Size: %d bytes", len(audioData))
	log.Printf("    Content-Type: %s", header.Header.Get("Content-Type"))

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	text := fmt.Sprintf("Mock transcription of window %d (%d audio bytes)", n, len(audioData))

	response := map[string]interface{}{
		"segment_id":   segmentID,
		"confidence":   0.95,
		"language":     language,
		"processed_at": time.Now().UTC(),
	}
	if n%2 == 0 {
		response["text"] = []segment{
			{Text: text, Start: 0, End: 15},
			{Text: "and a second segment", Start: 15, End: 30},
		}
	} else {
		response["text"] = text
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)

	log.Printf("✅ TRANSCRIPTION RESPONSE SENT: '%s'", text)
	log.Println("---")
}

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	flag.Parse()

	http.HandleFunc("/transcribe", transcribeHandler)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("🚀 Mock STT server starting on %s", addr)
	log.Printf("📡 Endpoint: http://localhost%s/transcribe", addr)

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
