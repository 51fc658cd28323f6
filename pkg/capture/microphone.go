package capture

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/sightline-ai/sightline/pkg/audio"
	"github.com/sightline-ai/sightline/pkg/sightline"
)

const (
	// DefaultBlockSize is samples per delivered block: 4096 samples at
	// 16 kHz is 256ms, the cadence the session sends audio upstream.
	DefaultBlockSize = 4096

	// DefaultQueueDepth is how many blocks may sit between the device
	// callback and the delivery goroutine before blocks are dropped.
	DefaultQueueDepth = 8

	devicePeriodMs = 20

	// silentBlockThreshold is roughly two seconds of default-size blocks.
	silentBlockThreshold = 8

	levelLogEvery = 40
)

// MicrophoneConfig configures microphone capture.
type MicrophoneConfig struct {
	// Format of captured PCM. Default: 16 kHz mono 16-bit.
	Format audio.Format

	// BlockSize is samples per block handed to the callback.
	BlockSize int

	// QueueDepth bounds the device-to-delivery queue.
	QueueDepth int

	// Logger is used for drop accounting. Nil means slog.Default().
	Logger *slog.Logger
}

func (c MicrophoneConfig) withDefaults() MicrophoneConfig {
	if c.Format == (audio.Format{}) {
		c.Format = audio.DefaultInputFormat()
	}
	if c.BlockSize <= 0 {
		c.BlockSize = DefaultBlockSize
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = DefaultQueueDepth
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Microphone captures PCM from the default capture device and delivers
// fixed-size blocks to a callback. The hardware data callback never
// blocks: under backpressure whole blocks are dropped and counted.
type Microphone struct {
	cfg MicrophoneConfig
	log *slog.Logger

	mctx   *malgo.AllocatedContext
	device *malgo.Device

	blocks  chan []byte
	dropped atomic.Int64

	startOnce sync.Once
	closeOnce sync.Once
	delivered chan struct{}
}

// OpenMicrophone acquires the capture hardware. Failure to acquire
// (permission denied, hardware busy) surfaces as DeviceUnavailable.
func OpenMicrophone(cfg MicrophoneConfig) (*Microphone, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Format.Validate(); err != nil {
		return nil, err
	}

	ctxConfig := malgo.ContextConfig{}
	ctxConfig.ThreadPriority = malgo.ThreadPriorityRealtime
	mctx, err := malgo.InitContext(nil, ctxConfig, nil)
	if err != nil {
		return nil, sightline.NewDeviceUnavailableError("init capture context", err)
	}

	m := &Microphone{
		cfg:       cfg,
		log:       cfg.Logger,
		mctx:      mctx,
		blocks:    make(chan []byte, cfg.QueueDepth),
		delivered: make(chan struct{}),
	}

	blockBytes := cfg.BlockSize * cfg.Format.BytesPerFrame()
	assembler := newBlockAssembler(blockBytes, m.enqueue)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(cfg.Format.Channels)
	deviceConfig.SampleRate = uint32(cfg.Format.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = devicePeriodMs

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, _ uint32) {
			assembler.write(pInputSamples)
		},
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return nil, sightline.NewDeviceUnavailableError("open microphone", err)
	}
	m.device = device
	return m, nil
}

// Start begins capture and delivers blocks to onBlock from a dedicated
// goroutine. onBlock should be short; a slow consumer causes drops, not
// device stalls.
func (m *Microphone) Start(onBlock func(pcm []byte)) error {
	var startErr error
	m.startOnce.Do(func() {
		go func() {
			defer close(m.delivered)
			var peak float64
			var count int
			for block := range m.blocks {
				if p := audio.PeakAmplitude(block); p > peak {
					peak = p
				}
				count++
				// A stretch of all-zero input usually means the wrong
				// device or a missing OS microphone permission.
				if count == silentBlockThreshold && peak == 0 {
					m.log.Warn("microphone input is all zeros; check device selection and OS permissions")
				}
				if count%levelLogEvery == 0 {
					m.log.Debug("microphone level", "peak", peak, "rms", audio.RMSEnergy(block))
				}
				onBlock(block)
			}
		}()
		if err := m.device.Start(); err != nil {
			startErr = sightline.NewDeviceUnavailableError("start microphone", err)
		}
	})
	return startErr
}

// enqueue runs on the device callback thread; it must never block.
func (m *Microphone) enqueue(block []byte) {
	select {
	case m.blocks <- block:
	default:
		m.dropped.Add(1)
	}
}

// Dropped reports how many blocks were discarded under backpressure.
func (m *Microphone) Dropped() int64 {
	return m.dropped.Load()
}

// Close stops the device, detaches the data callback, and releases the
// capture context. Idempotent.
func (m *Microphone) Close() error {
	m.closeOnce.Do(func() {
		if m.device != nil {
			_ = m.device.Stop()
			m.device.Uninit()
		}
		close(m.blocks)
		// Make sure no delivery is in flight before releasing.
		m.startOnce.Do(func() { close(m.delivered) })
		<-m.delivered
		if dropped := m.dropped.Load(); dropped > 0 {
			m.log.Warn("microphone dropped blocks under backpressure", "count", dropped)
		}
		_ = m.mctx.Uninit()
		m.mctx.Free()
	})
	return nil
}
