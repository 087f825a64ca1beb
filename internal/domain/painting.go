package domain

// WeightedFragment is one prompt concept and its emphasis weight.
type WeightedFragment struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

// VisualParams is the canonical set of values the params hash is derived from.
// Field order is part of the hash input and must not change.
type VisualParams struct {
	TokenID     string             `json:"tokenId"`
	Climate     MarketClimate      `json:"climate"`
	Archetype   TokenArchetype     `json:"archetype"`
	Event       EventPressure      `json:"event"`
	Composition Composition        `json:"composition"`
	Palette     Palette            `json:"palette"`
	Dynamics    Dynamics           `json:"dynamics"`
	Motifs      []string           `json:"motifs"`
	Weights     map[string]float64 `json:"weights"` // rounded to 3 decimals
}

// PromptComposition is the fully resolved provider request of a cycle.
type PromptComposition struct {
	Prompt     string
	Negative   string
	Width      int
	Height     int
	Format     string
	Seed       string // 12 lowercase hex chars
	ParamsHash string // 8 lowercase hex chars
	Filename   string // DOOM_{YYYYMMDDHHmm}_{hash}_{seed}.webp
}

// Painting is one persisted artifact. Created once, never updated.
// Corresponds to paintings table in PostgreSQL.
type Painting struct {
	ID           string // PRIMARY KEY, filename without extension
	Timestamp    string // ISO-8601 UTC
	TsUnix       int64  // unix seconds, pagination sort key
	MinuteBucket string // "YYYY-MM-DDTHH:MM"
	HourBucket   string // "YYYY-MM-DDTHH:00"
	Bucket       string // UNIQUE dedup bucket (hour or minute, per configuration)
	TokenID      string // selected token
	ParamsHash   string // 8 hex chars
	Seed         string // 12 hex chars
	ObjectKey    string // blob key
	ImageURL     string // public URL
	FileSize     int64  // bytes
	VisualParams string // serialized VisualParams (JSON)
	Prompt       string
	Negative     string
	CreatedAt    int64 // record creation (unix seconds)
}
