package storage

import (
	"fmt"

	"datasync/internal/providers"
	"datasync/internal/storage/interfaces"
	"datasync/internal/structures"
)

// NewSinkProvider picks the storage backend configured by storage.format.
func NewSinkProvider(conf *structures.Config, compressor interfaces.CompressorInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) (Sink, error) {
	switch conf.Storage.Format {
	case "", "csv":
		s, err := NewCSVStorage(conf, logger, metrics)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "json":
		s, err := NewJSONStorage(conf, compressor, logger, metrics)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage format %q", conf.Storage.Format)
	}
}
