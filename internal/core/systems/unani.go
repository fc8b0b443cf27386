package systems

import "github.com/traditional-medicine/mapcurator/internal/core"

func init() {
	core.Register(core.SystemProfile{
		System: core.SystemUnani,
		Label:  "Unani",
		Code: core.ColumnRule{
			Exact: []string{"NUMC_CODE", "NAMC_CODE", "Code", "CODE"},
		},
		Native: core.ColumnRule{
			Exact:  []string{"Arabic_term", "ARABIC_TERM"},
			Tokens: [][]string{{"arabic"}},
		},
		ReferenceFile: "NATIONAL UNANI MORBIDITY CODES.csv",
	})
}
