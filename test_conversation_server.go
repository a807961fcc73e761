package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/Aayushyaash/Rag-chatbot/internal/audio"
)

// Mock RAG backend for local testing of the voice client. Answers every
// conversation upload with a synthesized tone so the full capture, upload
// and playback loop can be exercised without the real backend.

var failureReason = flag.String("fail", "", "When set, every conversation returns this error reason")

func conversationHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32 MB
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"detail": "No audio file provided"})
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	log.Printf("🎤 CONVERSATION REQUEST RECEIVED:")
	log.Printf("    Filename: %s", header.Filename)
	log.Printf("    Audio Size: %d bytes", len(audioData))
	log.Printf("    Content-Type: %s", header.Header.Get("Content-Type"))
	describeRecording(audioData)

	if *failureReason != "" {
		log.Printf("    Responding with failure: %s", *failureReason)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"detail": *failureReason})
		return
	}

	// Simulate the transcription, retrieval and synthesis pipeline
	time.Sleep(500 * time.Millisecond)

	answer, err := synthesizeTone(2*time.Second, 440)
	if err != nil {
		http.Error(w, "Error synthesizing answer", http.StatusInternalServerError)
		return
	}

	log.Printf("    Responding with %d bytes of answer audio", len(answer))

	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	w.Write(answer)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// describeRecording logs what the uploaded WAV actually contains. A near-zero
// peak level usually means the microphone captured silence.
func describeRecording(data []byte) {
	duration, err := audio.WAVDuration(data)
	if err != nil {
		log.Printf("    Payload is not a readable WAV: %v", err)
		return
	}

	samples, rate, err := audio.DecodeWAV(data)
	if err != nil {
		log.Printf("    WAV header ok (%.2fs) but samples unreadable: %v", duration, err)
		return
	}

	var peak int16
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}

	log.Printf("    Recording: %.2fs, %d samples @ %d Hz, peak level %d", duration, len(samples), rate, peak)
}

// synthesizeTone generates a WAV sine tone to stand in for the answer
func synthesizeTone(duration time.Duration, freq float64) ([]byte, error) {
	const sampleRate = 16000

	n := int(duration.Seconds() * sampleRate)
	samples := make([]int16, n)
	for i := range samples {
		// Fade the tone in and out to avoid clicks
		envelope := math.Min(1, math.Min(float64(i), float64(n-i))/800)
		samples[i] = int16(16000 * envelope * math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
	}

	return audio.EncodeWAV(samples, sampleRate)
}

func main() {
	port := flag.Int("port", 8000, "Port to listen on")
	flag.Parse()

	http.HandleFunc("/api/voice/conversation", conversationHandler)
	http.HandleFunc("/api/health", healthHandler)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("🚀 Mock conversation backend listening on %s", addr)
	log.Printf("   POST /api/voice/conversation")
	log.Printf("   GET  /api/health")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
