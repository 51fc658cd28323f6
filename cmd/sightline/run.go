package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sightline-ai/sightline/pkg/audio"
	"github.com/sightline-ai/sightline/pkg/capture"
	"github.com/sightline-ai/sightline/pkg/playback"
	"github.com/sightline-ai/sightline/pkg/session"
	"github.com/sightline-ai/sightline/pkg/transport"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a streaming session",
	Long: `Connect to the remote service, stream microphone audio (and video
frames when --frame-cmd is set), and play returned audio until the
remote closes the session or Ctrl+C is pressed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession()
	},
}

func init() {
	runCmd.Flags().String("url", "", "service endpoint (http(s):// or ws(s)://)")
	runCmd.Flags().String("api-key", "", "API key sent as a bearer token")
	runCmd.Flags().Int("input-rate", audio.DefaultInputFormat().SampleRate, "capture sample rate in Hz")
	runCmd.Flags().Int("output-rate", audio.DefaultOutputFormat().SampleRate, "playback sample rate in Hz")
	runCmd.Flags().Int("block-size", capture.DefaultBlockSize, "microphone block size in samples")
	runCmd.Flags().Duration("frame-interval", capture.DefaultFrameInterval, "video frame sampling interval")
	runCmd.Flags().String("frame-cmd", "", "command that writes one image to stdout per invocation")
	runCmd.Flags().StringSlice("frame-cmd-args", nil, "arguments for --frame-cmd")
	runCmd.Flags().String("dump-audio", "", "write received audio to this WAV file on exit")
}

func runSession() error {
	log := slog.Default()

	inputFormat := audio.Format{
		SampleRate:    viper.GetInt("input-rate"),
		Channels:      1,
		BitsPerSample: 16,
	}
	outputFormat := audio.Format{
		SampleRate:    viper.GetInt("output-rate"),
		Channels:      1,
		BitsPerSample: 16,
	}

	url := viper.GetString("url")
	if url == "" {
		return fmt.Errorf("--url is required (or set SIGHTLINE_URL)")
	}

	transportCfg := transport.Config{
		URL:          url,
		APIKey:       viper.GetString("api-key"),
		InputFormat:  inputFormat,
		OutputFormat: outputFormat,
		Logger:       log,
	}

	var frameSource capture.FrameSource
	if cmd := viper.GetString("frame-cmd"); cmd != "" {
		frameSource = &capture.ExecFrameSource{
			Path: cmd,
			Args: viper.GetStringSlice("frame-cmd-args"),
		}
	}

	var recorder *audio.Buffer
	dumpPath := viper.GetString("dump-audio")
	if dumpPath != "" {
		// Keep up to ten minutes of received audio for the dump.
		recorder = audio.NewBuffer(outputFormat, 10*60*1000)
	}

	terminal := make(chan session.Status, 1)
	cfg := session.Config{
		Dial: func(ctx context.Context) (transport.Channel, error) {
			return transport.Dial(ctx, transportCfg)
		},
		OpenMicrophone: func() (session.Microphone, error) {
			return capture.OpenMicrophone(capture.MicrophoneConfig{
				Format:    inputFormat,
				BlockSize: viper.GetInt("block-size"),
				Logger:    log,
			})
		},
		OpenOutput: func() (playback.OutputDevice, error) {
			device, err := playback.NewOtoDevice(outputFormat)
			if err != nil {
				return nil, err
			}
			if recorder == nil {
				return device, nil
			}
			return &recordingDevice{OutputDevice: device, recorder: recorder}, nil
		},
		FrameSource:   frameSource,
		FrameInterval: viper.GetDuration("frame-interval"),
		OutputFormat:  outputFormat,
		OnStatus: func(s session.Status) {
			switch s.Kind {
			case session.StatusConnected:
				log.Info("connected", "session_id", s.SessionID)
			default:
				select {
				case terminal <- s:
				default:
				}
			}
		},
		Logger: log,
	}

	ctrl, err := session.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Start(ctx); err != nil {
		return err
	}
	log.Info("session starting, press Ctrl+C to stop")

	var final session.Status
	select {
	case <-ctx.Done():
		log.Info("stopping...")
		ctrl.Stop()
		final = waitTerminal(terminal)
	case final = <-terminal:
	}

	if recorder != nil && recorder.Len() > 0 {
		wav := audio.PCMToWAV(recorder.Read(), outputFormat)
		if err := os.WriteFile(dumpPath, wav, 0o644); err != nil {
			log.Error("write audio dump failed", "error", err)
		} else {
			log.Info("wrote audio dump", "path", dumpPath, "bytes", len(wav))
		}
	}

	if final.Kind == session.StatusError {
		return fmt.Errorf("session failed: %w", final.Err)
	}
	log.Info("session ended")
	return nil
}

func waitTerminal(terminal <-chan session.Status) session.Status {
	select {
	case s := <-terminal:
		return s
	case <-time.After(5 * time.Second):
		return session.Status{Kind: session.StatusDisconnected}
	}
}

// recordingDevice tees every scheduled chunk into a bounded buffer so
// the received audio can be dumped to a WAV file after the session.
type recordingDevice struct {
	playback.OutputDevice
	recorder *audio.Buffer
}

func (d *recordingDevice) Schedule(chunk *audio.Chunk, at time.Duration) (playback.Source, error) {
	src, err := d.OutputDevice.Schedule(chunk, at)
	if err == nil {
		d.recorder.Write(chunk.Data())
	}
	return src, err
}
