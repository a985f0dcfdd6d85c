package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/joho/godotenv"

	"github.com/sonavox-ai/livebridge/pkg/audio"
	"github.com/sonavox-ai/livebridge/pkg/live"
)

type stdLogger struct{}

func (l *stdLogger) Debug(msg string, args ...interface{}) {}
func (l *stdLogger) Info(msg string, args ...interface{}) {
	log.Printf("INFO %s %v", msg, args)
}
func (l *stdLogger) Warn(msg string, args ...interface{}) {
	log.Printf("WARN %s %v", msg, args)
}
func (l *stdLogger) Error(msg string, args ...interface{}) {
	log.Printf("ERROR %s %v", msg, args)
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, using system environment variables")
	}

	token := os.Getenv("GOOGLE_BEARER_TOKEN")
	if token == "" {
		log.Fatal("Error: GOOGLE_BEARER_TOKEN must be set.")
	}

	model := os.Getenv("LIVE_MODEL")
	if model == "" {
		model = "projects/my-project/locations/us-central1/publishers/google/models/gemini-2.0-flash-exp"
	}

	voice := live.Voice(os.Getenv("LIVE_VOICE"))
	if voice == "" {
		voice = live.VoiceAoede
	}

	recordPath := os.Getenv("RECORD_PATH")

	cfg := live.DefaultConfig()
	if url := os.Getenv("SERVICE_URL"); url != "" {
		cfg.ServiceURL = url
	}
	cfg.BearerToken = token

	session := live.NewSessionWithLogger(cfg, &stdLogger{})
	defer session.Close()

	// Example client-side capability: the model can ask for local time.
	session.SetToolHandler(func(call live.FunctionCall) (map[string]interface{}, error) {
		switch call.Name {
		case "get_local_time":
			return map[string]interface{}{"time": time.Now().Format(time.RFC1123)}, nil
		default:
			return nil, fmt.Errorf("unknown tool: %s", call.Name)
		}
	})

	sessionCfg := live.SessionConfig{
		Model:              model,
		ResponseModalities: []string{live.ModalityAudio},
		VoiceName:          voice,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := session.Connect(ctx, sessionCfg); err != nil {
		log.Fatalf("connect failed: %v", err)
	}
	defer session.Disconnect()

	fmt.Printf("Configured: model=%s | voice=%s | %dHz mono PCM\n", model, voice, live.SampleRate)
	fmt.Println("Live agent connected. Speak into the microphone, or type a message and press Enter.")
	fmt.Println("Press Ctrl+C to exit")

	// Audio engine (malgo): one duplex device, capture feeding realtime
	// input and playback pulling from the scheduler.
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer mctx.Uninit()

	sched := session.Scheduler()

	var recordMu sync.Mutex
	var recorded []byte

	onSamples := func(pOutput, pInput []byte, frameCount uint32) {
		if pInput != nil {
			// Copy: malgo reuses the capture buffer between callbacks.
			chunk := make([]byte, len(pInput))
			copy(chunk, pInput)
			_ = session.SendAudio(ctx, chunk)
		}
		if pOutput != nil {
			sched.Render(pOutput)
			if recordPath != "" {
				recordMu.Lock()
				recorded = append(recorded, pOutput...)
				recordMu.Unlock()
			}
		}
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = live.Channels
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = live.Channels
	deviceConfig.SampleRate = live.SampleRate
	deviceConfig.Alsa.NoMMap = 1 // Better compatibility on some systems

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		log.Fatal(err)
	}

	// Visual feedback for playback level and streamed text
	go func() {
		lastText := ""
		for {
			level := session.Volume()
			meter := ""
			dots := int(level * 200)
			if dots > 40 {
				dots = 40
			}
			for i := 0; i < dots; i++ {
				meter += "|"
			}
			buffered := live.PCMDuration(sched.QueuedBytes())
			fmt.Printf("\r[SPEAKER: %-40s] buffered: %5dms", meter, buffered.Milliseconds())

			if text := session.Text(); text != "" && text != lastText {
				lastText = text
				fmt.Printf("\r\033[K[MODEL] %s\n", text)
			}
			time.Sleep(100 * time.Millisecond)
		}
	}()

	// Typed input as an alternative to speech
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			sent, err := session.Send(ctx, text)
			if err != nil {
				fmt.Printf("\r\033[K[SEND ERROR] %v\n", err)
			} else if !sent {
				fmt.Printf("\r\033[K[NOT READY] handshake still in progress\n")
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Printf("\nShutting down...\n")

	if recordPath != "" {
		recordMu.Lock()
		pcm := recorded
		recordMu.Unlock()
		if err := audio.WriteWavFile(recordPath, pcm, live.SampleRate); err != nil {
			log.Printf("failed to write recording: %v", err)
		} else {
			fmt.Printf("Saved session audio to %s\n", recordPath)
		}
	}
}
