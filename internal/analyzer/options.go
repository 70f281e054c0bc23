package analyzer

// DetectorOptions configures extraction and scoring.
type DetectorOptions struct {
	// Feature toggles
	AuxiliaryFeatures bool // jpegBlocks and frequency categories
	EventPhotoRule    bool

	// Performance options
	ParallelExtraction bool
	MaxWorkers         int

	// Score rule constants, used when EventPhotoRule is set
	EventPhoto EventPhotoDampening
}

// DefaultOptions returns default detector options
func DefaultOptions() DetectorOptions {
	return DetectorOptions{
		AuxiliaryFeatures:  true,
		EventPhotoRule:     true,
		ParallelExtraction: true,
		MaxWorkers:         0, // Use default CPU count
		EventPhoto:         DefaultEventPhotoDampening(),
	}
}

// CoreOptions returns options that compute only the six core categories and
// score them with the plain rule table.
func CoreOptions() DetectorOptions {
	opts := DefaultOptions()
	opts.AuxiliaryFeatures = false
	opts.EventPhotoRule = false
	return opts
}

// SequentialOptions returns options that run every scan on the calling goroutine.
func SequentialOptions() DetectorOptions {
	opts := DefaultOptions()
	opts.ParallelExtraction = false
	return opts
}

// WithoutEventPhotoRule disables the event-photo dampening rule
func (opts DetectorOptions) WithoutEventPhotoRule() DetectorOptions {
	opts.EventPhotoRule = false
	return opts
}

// WithEventPhotoRule enables dampening with custom constants
func (opts DetectorOptions) WithEventPhotoRule(rule EventPhotoDampening) DetectorOptions {
	opts.EventPhotoRule = true
	opts.EventPhoto = rule
	return opts
}

// WithAuxiliaryFeatures toggles the jpegBlocks and frequency categories
func (opts DetectorOptions) WithAuxiliaryFeatures(enabled bool) DetectorOptions {
	opts.AuxiliaryFeatures = enabled
	return opts
}

// WithMaxWorkers bounds the goroutines used per scan; <= 0 means NumCPU
func (opts DetectorOptions) WithMaxWorkers(n int) DetectorOptions {
	opts.MaxWorkers = n
	return opts
}

// WithParallelExtraction toggles concurrent scans
func (opts DetectorOptions) WithParallelExtraction(enabled bool) DetectorOptions {
	opts.ParallelExtraction = enabled
	return opts
}

// adjusters returns the score adjusters enabled by opts.
func (opts DetectorOptions) adjusters() []ScoreAdjuster {
	if !opts.EventPhotoRule {
		return nil
	}
	return []ScoreAdjuster{opts.EventPhoto}
}
