package pipeline

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"readout/config"
	"readout/export"
	"readout/utils"
)

type artifact struct{ name, path string }

func writeArtifacts(cfg *config.Config, res *Result, timeSamples int, log zerolog.Logger) error {
	t0 := time.Now()
	var written []artifact

	if err := export.WriteLLRMem(cfg.Out.LLR, res.Quantized); err != nil {
		return exportFailed(err, "write llr memory file")
	}
	written = append(written, artifact{"llr", cfg.Out.LLR})

	if err := export.WriteTruth(cfg.Out.Truth, res.Truth); err != nil {
		return exportFailed(err, "write ground-truth file")
	}
	written = append(written, artifact{"truth", cfg.Out.Truth})

	if cfg.Out.Word32 != "" {
		if err := export.WriteWord32(cfg.Out.Word32, res.Quantized); err != nil {
			return exportFailed(err, "write sign-extended file")
		}
		written = append(written, artifact{"word32", cfg.Out.Word32})
	}
	for _, w := range written {
		log.Info().Str("artifact", w.name).Str("path", w.path).Int("lines", len(res.Quantized)).Msg("wrote artifact")
	}
	utils.Track(&res.Timings.ExportTime, t0)

	if cfg.Out.Report != "" {
		t0 = time.Now()
		rows := make([]export.IQRow, len(res.Samples))
		for i := range rows {
			rows[i] = export.IQRow{
				Truth:   res.Truth[i],
				Raw:     res.Samples[i],
				Rotated: res.Rotated[i],
				LLR:     res.LLR[i],
				Q:       res.Quantized[i],
			}
		}
		// the report is observational; a failure here does not void the artifacts
		if err := export.WriteIQReport(cfg.Out.Report, rows); err != nil {
			log.Warn().Err(err).Str("path", cfg.Out.Report).Msg("failed to write IQ report")
		} else {
			log.Info().Str("artifact", "report").Str("path", cfg.Out.Report).Msg("wrote artifact")
		}
		utils.Track(&res.Timings.ReportTime, t0)
	}

	if cfg.Out.Manifest == "" {
		return nil
	}
	m := export.NewManifest(export.RunParameters{
		Bits:         cfg.Bits,
		TimeSamples:  timeSamples,
		Sigma:        cfg.Sigma,
		Scale:        cfg.Scale,
		Clip:         cfg.Clip,
		Seed:         cfg.Seed,
		Calibration:  cfg.Calibration,
		ZeroVariance: cfg.ZeroVariance,
		Codeword:     cfg.Codeword,
		Model:        cfg.Model,
		Flips:        cfg.Flips,
	}, res.Params)
	for _, w := range written {
		if err := m.Record(w.name, w.path); err != nil {
			return exportFailed(err, "hash artifact")
		}
	}
	if err := m.Save(cfg.Out.Manifest); err != nil {
		return exportFailed(err, "write manifest")
	}
	res.Manifest = m
	log.Info().Str("artifact", "manifest").Str("path", cfg.Out.Manifest).Str("run_id", m.RunID).Msg("wrote artifact")
	return nil
}

func exportFailed(err error, what string) error {
	return fmt.Errorf("exporter: %s: %w", what, err)
}
