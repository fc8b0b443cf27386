package systems

import "github.com/traditional-medicine/mapcurator/internal/core"

func init() {
	core.Register(core.SystemProfile{
		System: core.SystemSiddha,
		Label:  "Siddha",
		Code: core.ColumnRule{
			Exact: []string{"NSMC_CODE", "NAMC_CODE", "Code", "CODE"},
		},
		Native: core.ColumnRule{
			Exact:  []string{"Tamil_term", "TAMIL_TERM"},
			Tokens: [][]string{{"tamil"}},
		},
		ReferenceFile: "NATIONAL SIDDHA MORBIDITY CODES.csv",
	})
}
