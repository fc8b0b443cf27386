package systems

import "github.com/traditional-medicine/mapcurator/internal/core"

func init() {
	core.Register(core.SystemProfile{
		System: core.SystemAyurveda,
		Label:  "Ayurveda",
		Code: core.ColumnRule{
			Exact: []string{"NAMC_CODE", "Code", "CODE"},
		},
		Native: core.ColumnRule{
			Exact:  []string{"NAMC_term_DEVANAGARI", "NAMC_TERM_DEVANAGARI"},
			Tokens: [][]string{{"devanagari"}},
		},
		ReferenceFile: "NATIONAL AYURVEDA MORBIDITY CODES.csv",
	})
}
