package di

import (
	"datasync/internal/providers"
	"datasync/internal/storage"
	"datasync/internal/storage/interfaces"
	"datasync/internal/structures"
)

func provideLogger(conf *structures.Config) (providers.Logger, func(), error) {
	logger, err := providers.NewLogProvider(conf)
	if err != nil {
		return nil, nil, err
	}
	return logger, logger.Close, nil
}

func provideCompressor(conf *structures.Config) (interfaces.CompressorInterface, func(), error) {
	compressor, err := storage.NewZstdCompressor(conf)
	if err != nil {
		return nil, nil, err
	}
	return compressor, compressor.Close, nil
}
