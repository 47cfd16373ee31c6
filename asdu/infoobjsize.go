// SPDX-License-Identifier: MIT
// Copyright (c) 2025 go-iecp5 contributors.

package asdu

// infoObjSize maps a TypeID to the wire octet size of one information
// object's value+quality(+time) payload, excluding its information object
// address. Used by checkValid and fixInfoObjSize to size an ASDU.
var infoObjSize = map[TypeID]int{
	M_SP_NA_1: 1,
	M_SP_TA_1: 4,
	M_DP_NA_1: 1,
	M_DP_TA_1: 4,
	M_ST_NA_1: 2,
	M_ST_TA_1: 5,
	M_BO_NA_1: 5,
	M_BO_TA_1: 8,
	M_ME_NA_1: 3,
	M_ME_TA_1: 6,
	M_ME_NB_1: 3,
	M_ME_TB_1: 6,
	M_ME_NC_1: 5,
	M_ME_TC_1: 8,
	M_IT_NA_1: 5,
	M_IT_TA_1: 8,
	M_EP_TA_1: 6,
	M_EP_TB_1: 7,
	M_EP_TC_1: 7,
	M_PS_NA_1: 5,
	M_ME_ND_1: 2,

	M_SP_TB_1: 8,
	M_DP_TB_1: 8,
	M_ST_TB_1: 9,
	M_BO_TB_1: 12,
	M_ME_TD_1: 10,
	M_ME_TE_1: 10,
	M_ME_TF_1: 12,
	M_IT_TB_1: 12,
	M_EP_TD_1: 10,
	M_EP_TE_1: 11,
	M_EP_TF_1: 11,

	C_SC_NA_1: 1,
	C_SC_TA_1: 8,
	C_DC_NA_1: 1,
	C_DC_TA_1: 8,
	C_RC_NA_1: 1,
	C_RC_TA_1: 8,
	C_SE_NA_1: 3,
	C_SE_TA_1: 10,
	C_SE_NB_1: 3,
	C_SE_TB_1: 10,
	C_SE_NC_1: 5,
	C_SE_TC_1: 12,
	C_BO_NA_1: 4,
	C_BO_TA_1: 11,

	M_EI_NA_1: 1,

	C_IC_NA_1: 1,
	C_CI_NA_1: 1,
	C_RD_NA_1: 0,
	C_CS_NA_1: 7,
	C_TS_NA_1: 2,
	C_RP_NA_1: 1,
	C_CD_NA_1: 2,
	C_TS_TA_1: 9,

	P_ME_NA_1: 3,
	P_ME_NB_1: 3,
	P_ME_NC_1: 5,
	P_AC_NA_1: 1,
}

// GetInfoObjSize returns the wire octet size of one information object's
// value+quality(+time) payload for a given TypeID.
func GetInfoObjSize(id TypeID) (int, error) {
	size, ok := infoObjSize[id]
	if !ok {
		return 0, ErrTypeIDNotMatch
	}
	return size, nil
}
