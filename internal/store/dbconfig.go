package store

import (
	"context"
	"strconv"

	"github.com/amanmcp-labs/memoryd/internal/apperr"
	"github.com/amanmcp-labs/memoryd/internal/embed"
	"github.com/amanmcp-labs/memoryd/internal/model"
)

type dbConfigRow struct {
	ModelName          string `json:"model_name"`
	EffectiveDimension int    `json:"effective_dimension"`
}

func (r dbConfigRow) toModel() model.DbConfig {
	return model.DbConfig{ModelName: r.ModelName, EffectiveDimension: r.EffectiveDimension}
}

const getDbConfigQuery = `SELECT * FROM db_config LIMIT 1;`

// GetDbConfig fetches the singleton record recording which embedding model
// produced the currently-stored vectors. The second return is false on a
// fresh store that has never embedded anything.
func (s *Store) GetDbConfig(ctx context.Context) (model.DbConfig, bool, error) {
	rows, err := query[dbConfigRow](ctx, s, getDbConfigQuery, nil)
	if err != nil {
		return model.DbConfig{}, false, err
	}
	if len(rows) == 0 {
		return model.DbConfig{}, false, nil
	}
	return rows[0].toModel(), true, nil
}

const deleteDbConfigQuery = `DELETE FROM db_config;`
const createDbConfigQuery = `
CREATE db_config CONTENT { model_name: $model_name, effective_dimension: $dim };`

// SetDbConfig rewrites the singleton db_config record. Callers must only
// invoke this after resolving a dimension-mismatch policy (force_model or
// reset_memory), never as a matter of course.
func (s *Store) SetDbConfig(ctx context.Context, cfg model.DbConfig) error {
	if _, err := query[dbConfigRow](ctx, s, deleteDbConfigQuery, nil); err != nil {
		return err
	}
	rows, err := query[dbConfigRow](ctx, s, createDbConfigQuery, map[string]any{
		"model_name": cfg.ModelName,
		"dim":        cfg.EffectiveDimension,
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return apperr.New(apperr.Database, "db_config_create_no_row", "create returned no row", nil)
	}
	return nil
}

// CheckDimensionCompatibility enforces spec's dimension-mismatch policy: a
// store that already holds vectors from a different model/dimension must
// not silently accept writes from a new one. Returns apperr.DimensionMismatch
// when cfg diverges from the stored configuration and neither override
// policy is set.
func (s *Store) CheckDimensionCompatibility(ctx context.Context, cfg model.DbConfig, forceModel, resetMemory bool) error {
	existing, found, err := s.GetDbConfig(ctx)
	if err != nil {
		return err
	}
	if !found {
		return s.SetDbConfig(ctx, cfg)
	}
	if existing.ModelName == cfg.ModelName && existing.EffectiveDimension == cfg.EffectiveDimension {
		return nil
	}

	switch {
	case resetMemory:
		if err := s.ResetMemories(ctx); err != nil {
			return err
		}
		return s.SetDbConfig(ctx, cfg)
	case forceModel:
		name, ok := findModelForDimension(existing.EffectiveDimension)
		if !ok {
			return apperr.New(apperr.DimensionMismatch, "dimension_mismatch_no_model",
				"stored vectors are "+strconv.Itoa(existing.EffectiveDimension)+
					" dims; no registered embedding model produces that dimension, so force_model cannot reconcile it", nil)
		}
		return s.SetDbConfig(ctx, model.DbConfig{ModelName: name, EffectiveDimension: existing.EffectiveDimension})
	default:
		return apperr.New(apperr.DimensionMismatch, "dimension_mismatch",
			"stored vectors were produced by "+existing.ModelName+" ("+strconv.Itoa(existing.EffectiveDimension)+
				" dims); requested model "+cfg.ModelName+" produces "+strconv.Itoa(cfg.EffectiveDimension)+
				" dims — set force_model or reset_memory to proceed", nil)
	}
}

// findModelForDimension searches the embedding model registry for a model
// whose native or Matryoshka-truncated dimension equals dim, implementing
// force_model's "pick a model with matching dimension" policy.
func findModelForDimension(dim int) (string, bool) {
	for _, name := range embed.Names() {
		spec, err := embed.Lookup(name)
		if err != nil {
			continue
		}
		if spec.Dimension == dim {
			return name, true
		}
		for _, d := range spec.MRLDims {
			if d == dim {
				return name, true
			}
		}
	}
	return "", false
}
