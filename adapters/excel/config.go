package excel

// TableConfig holds settings for file-backed event tables
type TableConfig struct {
	// CompressionLevel is the zstd level used for .csv.zst outputs
	CompressionLevel int `json:"compression_level"`
	// MaxSheetRows guards against tables that do not fit a worksheet
	MaxSheetRows int `json:"max_sheet_rows"`
}

// DefaultTableConfig returns sensible defaults for table files
func DefaultTableConfig() TableConfig {
	return TableConfig{
		CompressionLevel: 3,
		MaxSheetRows:     1048575,
	}
}
