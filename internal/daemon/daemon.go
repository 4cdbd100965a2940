// Package daemon wires every mtpd package into one runnable process:
// the storage engine, the FunctionFS transport, the thumbnail client,
// the device-info provider, the property registry, the extension
// chain, and the responder event loop (spec.md §5 "one event loop
// thread hosts the responder state machine, the storage engine, and
// the property registry").
//
// New assumes metrics.InitRegistry has already been called by the
// caller when config.Config.Metrics.Enabled is set — the registry is
// process-wide, and the caller is also the one that mounts its HTTP
// handler, so New only reads it rather than re-initializing it.
package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marmos91/mtpd/internal/config"
	"github.com/marmos91/mtpd/internal/deviceinfo"
	"github.com/marmos91/mtpd/internal/extension"
	"github.com/marmos91/mtpd/internal/metrics"
	"github.com/marmos91/mtpd/internal/propreg"
	"github.com/marmos91/mtpd/internal/responder"
	"github.com/marmos91/mtpd/internal/storage"
	"github.com/marmos91/mtpd/internal/thumbnail"
	"github.com/marmos91/mtpd/internal/transport/functionfs"
)

// commonSampleRates/commonChannelCounts/waveCodecs are the audio
// capability values advertised through the property registry's
// enum forms (spec.md §4.2 "populated at construction from the
// device-info provider"). mtpd has no microphone of its own and no
// per-device audio configuration surface, so these are fixed to the
// values MTP 1.1 Appendix D lists as commonly supported rather than
// read from config.Config.
var (
	commonSampleRates   = []uint32{8000, 11025, 22050, 32000, 44100, 48000}
	commonChannelCounts = []uint16{1, 2}
	commonWaveCodecs    = []uint16{1, 3} // WAVE_FORMAT_PCM, WAVE_FORMAT_IEEE_FLOAT
)

// supportedEvents lists the event codes mtpd's storage engine and
// responder can emit (spec.md §4.6.6).
var supportedEvents = []uint16{
	uint16(0x4002), // ObjectAdded
	uint16(0x4003), // ObjectRemoved
	uint16(0x4004), // StoreAdded
	uint16(0x4005), // StoreRemoved
	uint16(0x4006), // DevicePropChanged
	uint16(0x4007), // ObjectInfoChanged
	uint16(0x400C), // StorageInfoChanged
	uint16(0xC801), // ObjectPropChanged
}

// supportedDeviceProps lists the device properties GetDevicePropDesc/
// GetDevicePropValue/SetDevicePropValue accept (spec.md §4.1, MTP 1.1
// Appendix D "Device Properties").
var supportedDeviceProps = []uint16{
	uint16(0xD402), // DeviceFriendlyName
	uint16(0xD401), // SyncPartner
}

// supportedFormats lists the object formats advertised in both the
// CaptureFormats and PlaybackFormats arrays; mtpd exposes whatever a
// generic file store holds rather than modelling a camera (spec.md
// §4.1 "a generic MTP responder, not a camera").
var supportedFormats = []uint16{
	0x3000, // Undefined
	0x3001, // Association (folder)
	0x3004, // Text
	0x3801, // EXIF/JPEG
	0x3808, // JFIF
	0x3009, // MP3
	0x3008, // WAV
	0xB982, // MP4
}

// Daemon owns every collaborator the responder event loop needs and
// the background goroutines (thumbnail client, transport, responder)
// that drive it.
type Daemon struct {
	logger *slog.Logger
	cfg    *config.Config

	storages   *storage.Engine
	thumbnails *thumbnail.Client
	transport  *functionfs.Transport
	devInfo    *deviceinfo.Provider
	registry   *propreg.Registry
	extensions *extension.Manager
	resp       *responder.Responder

	storageReady chan uint32
	storageCount int
}

// New assembles a Daemon from cfg. It mounts every configured storage
// root, connects the thumbnail client's D-Bus session, opens the
// FunctionFS descriptor endpoint, and constructs the responder — but
// does not yet activate the bulk/interrupt endpoints or start any
// goroutine; call Run for that.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Daemon, error) {
	var respMetrics *metrics.ResponderMetrics
	var transMetrics *metrics.TransportMetrics
	if cfg.Metrics.Enabled {
		// The registry itself is process-wide and owned by the caller
		// (cmd/mtpd/commands/start.go calls metrics.InitRegistry before
		// constructing the daemon, so the metrics HTTP handler and these
		// collectors bind to the same instance); New only reads it.
		respMetrics = metrics.NewResponderMetrics()
		transMetrics = metrics.NewTransportMetrics()
	}

	readyCh := make(chan uint32, len(cfg.Storages))
	storages := storage.NewEngine(log.With("component", "storage"), cfg.StateDir, func(storageID uint32) {
		select {
		case readyCh <- storageID:
		default:
		}
	})

	readOnly := make(map[uint32]bool, len(cfg.Storages))
	for _, sc := range cfg.Storages {
		readOnly[sc.ID] = sc.ReadOnly
		if err := storages.Mount(storage.Config{
			ID:          sc.ID,
			Root:        sc.Root,
			Description: sc.Description,
			VolumeLabel: sc.VolumeLabel,
			FSUUID:      sc.FSUUID,
			MaxCapacity: sc.MaxCapacity.Uint64(),
			ReadOnly:    sc.ReadOnly,
			Excluded:    sc.Excluded,
		}); err != nil {
			return nil, fmt.Errorf("daemon: mount storage %q: %w", sc.Root, err)
		}
	}

	thumbClient, err := thumbnail.New(log.With("component", "thumbnail"), cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("daemon: thumbnail client: %w", err)
	}

	transport := functionfs.New(log.With("component", "transport"), functionfs.Config{
		MountPoint: cfg.FunctionFS.MountPoint,
	})
	transport.SetMetrics(transMetrics)
	if err := transport.WriteDescriptors(); err != nil {
		return nil, fmt.Errorf("daemon: write descriptors: %w", err)
	}

	devInfo, err := deviceinfo.New(cfg.StateDir, deviceinfo.Static{
		Manufacturer:              cfg.Device.Manufacturer,
		Model:                     cfg.Device.Model,
		DeviceVersion:             cfg.Device.DeviceVersion,
		SerialNumber:              cfg.Device.SerialNumber,
		OperationsSupported:       responder.SupportedOperations(),
		EventsSupported:           supportedEvents,
		DevicePropertiesSupported: supportedDeviceProps,
		CaptureFormats:            supportedFormats,
		PlaybackFormats:           supportedFormats,
	})
	if err != nil {
		return nil, fmt.Errorf("daemon: device info provider: %w", err)
	}

	registry := propreg.New(propreg.Capabilities{
		SampleRates:   commonSampleRates,
		ChannelCounts: commonChannelCounts,
		WaveCodecs:    commonWaveCodecs,
	})
	extensions := extension.NewManager()

	resp := responder.NewResponder(responder.Config{
		Logger:     log.With("component", "responder"),
		Transport:  transport,
		Signals:    signalAdapter{t: transport},
		Storage:    storages,
		DeviceInfo: devInfo,
		Registry:   registry,
		Extensions: extensions,
		Thumbnails: thumbClient.Lookup,
		ReadOnly:   readOnly,
		Metrics:    respMetrics,
	})

	return &Daemon{
		logger:       log,
		cfg:          cfg,
		storages:     storages,
		thumbnails:   thumbClient,
		transport:    transport,
		devInfo:      devInfo,
		registry:     registry,
		extensions:   extensions,
		resp:         resp,
		storageReady: readyCh,
		storageCount: len(cfg.Storages),
	}, nil
}

// Run waits for every configured storage root to finish its initial
// enumeration, then activates the FunctionFS bulk/interrupt endpoints
// and runs the thumbnail client and responder event loop until ctx is
// cancelled (spec.md §4.5.1 "callers defer [Activate] until the
// storage engine signals ready, so the host never observes
// attach-then-stall").
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.awaitStorages(ctx); err != nil {
		return err
	}

	if err := d.transport.Activate(ctx); err != nil {
		return fmt.Errorf("daemon: activate transport: %w", err)
	}
	defer d.transport.Close()
	defer d.thumbnails.Close()

	go d.thumbnails.Run(ctx)
	go d.forwardThumbnails(ctx)

	return d.resp.Run(ctx)
}

// awaitStorages blocks until every storage root passed to New has
// finished its initial enumeration.
func (d *Daemon) awaitStorages(ctx context.Context) error {
	for remaining := d.storageCount; remaining > 0; remaining-- {
		select {
		case storageID := <-d.storageReady:
			d.logger.Info("daemon: storage ready", "storage_id", storageID)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// forwardThumbnails drains the thumbnail client's Ready signal so the
// D-Bus signal loop never blocks on a full channel. The actual
// Rep_Sample_Data delivery is pull-based: GetObjectPropertyValue
// consults the same Client.Lookup the responder was constructed with
// the next time the host asks (spec.md §4.4).
func (d *Daemon) forwardThumbnails(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-d.thumbnails.Ready():
			if !ok {
				return
			}
			d.logger.Debug("daemon: thumbnail ready", "path", path)
		}
	}
}
