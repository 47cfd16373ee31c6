// SPDX-License-Identifier: MIT
// Copyright (c) 2025 go-iecp5 contributors.

package asdu

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Params validation, ASDU assembly, and the
// per-family command builders.
var (
	ErrParam             = errors.New("asdu: invalid params")
	ErrCommonAddrZero    = errors.New("asdu: common address is zero")
	ErrCommonAddrFit     = errors.New("asdu: common address does not fit params width")
	ErrOriginAddrFit     = errors.New("asdu: originator address does not fit params width")
	ErrCauseZero         = errors.New("asdu: cause of transmission is zero")
	ErrCmdCause          = errors.New("asdu: cause of transmission not valid for a command")
	ErrTypeIDNotMatch    = errors.New("asdu: type identifier does not match requested message")
	ErrNotAnyObjInfo     = errors.New("asdu: no information object given")
	ErrInfoObjIndexFit   = errors.New("asdu: information object index out of range")
	ErrInfoObjAddrFit    = errors.New("asdu: information object address does not fit params width")
	ErrLengthOutOfRange  = errors.New("asdu: encoded length out of range")
)

// CommonAddr is the ASDU common address (station address).
type CommonAddr uint16

// OriginAddr is the originator address, applicable when Params.CauseSize == 2.
type OriginAddr uint8

const (
	// GlobalCommonAddr addresses every station reachable on the connection.
	GlobalCommonAddr CommonAddr = 0xffff
	// InvalidCommonAddr is never a valid station address.
	InvalidCommonAddr CommonAddr = 0
)

// TypeID is the ASDU type identification, companion standard 101 7.2.1.1.
type TypeID uint8

// Monitored information ASDUs (process information in monitor direction).
const (
	_ TypeID = iota
	M_SP_NA_1
	M_SP_TA_1
	M_DP_NA_1
	M_DP_TA_1
	M_ST_NA_1
	M_ST_TA_1
	M_BO_NA_1
	M_BO_TA_1
	M_ME_NA_1
	M_ME_TA_1
	M_ME_NB_1
	M_ME_TB_1
	M_ME_NC_1
	M_ME_TC_1
	M_IT_NA_1
	M_IT_TA_1
	M_EP_TA_1
	M_EP_TB_1
	M_EP_TC_1
	M_PS_NA_1
	M_ME_ND_1
	_
	_
	_
	_
	_
	_
	_
	_
	M_SP_TB_1
	M_DP_TB_1
	M_ST_TB_1
	M_BO_TB_1
	M_ME_TD_1
	M_ME_TE_1
	M_ME_TF_1
	M_IT_TB_1
	M_EP_TD_1
	M_EP_TE_1
	M_EP_TF_1
)

// Process information in control direction.
const (
	C_SC_NA_1 TypeID = iota + 45
	C_DC_NA_1
	C_RC_NA_1
	C_SE_NA_1
	C_SE_NB_1
	C_SE_NC_1
	C_BO_NA_1
)

// System information in control direction.
const (
	C_IC_NA_1 TypeID = iota + 100
	C_CI_NA_1
	C_RD_NA_1
	C_CS_NA_1
	C_TS_NA_1
	C_RP_NA_1
	C_CD_NA_1
	C_TS_TA_1
)

// Parameter in control direction.
const (
	P_ME_NA_1 TypeID = iota + 110
	P_ME_NB_1
	P_ME_NC_1
	P_AC_NA_1
)

// Process information in control direction with long (CP56Time2a) time tags,
// companion standard 101 7.2.1.1, types 58-64.
const (
	C_SC_TA_1 TypeID = iota + 58
	C_DC_TA_1
	C_RC_TA_1
	C_SE_TA_1
	C_SE_TB_1
	C_SE_TC_1
	C_BO_TA_1
)

func (t TypeID) String() string {
	if s, ok := typeIDNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TypeID(%d)", uint8(t))
}

var typeIDNames = map[TypeID]string{
	M_SP_NA_1: "M_SP_NA_1", M_SP_TA_1: "M_SP_TA_1", M_SP_TB_1: "M_SP_TB_1",
	M_DP_NA_1: "M_DP_NA_1", M_DP_TA_1: "M_DP_TA_1", M_DP_TB_1: "M_DP_TB_1",
	M_ST_NA_1: "M_ST_NA_1", M_ST_TA_1: "M_ST_TA_1", M_ST_TB_1: "M_ST_TB_1",
	M_BO_NA_1: "M_BO_NA_1", M_BO_TA_1: "M_BO_TA_1", M_BO_TB_1: "M_BO_TB_1",
	M_ME_NA_1: "M_ME_NA_1", M_ME_TA_1: "M_ME_TA_1", M_ME_TD_1: "M_ME_TD_1", M_ME_ND_1: "M_ME_ND_1",
	M_ME_NB_1: "M_ME_NB_1", M_ME_TB_1: "M_ME_TB_1", M_ME_TE_1: "M_ME_TE_1",
	M_ME_NC_1: "M_ME_NC_1", M_ME_TC_1: "M_ME_TC_1", M_ME_TF_1: "M_ME_TF_1",
	M_IT_NA_1: "M_IT_NA_1", M_IT_TA_1: "M_IT_TA_1", M_IT_TB_1: "M_IT_TB_1",
	M_EP_TA_1: "M_EP_TA_1", M_EP_TD_1: "M_EP_TD_1",
	M_EP_TB_1: "M_EP_TB_1", M_EP_TE_1: "M_EP_TE_1",
	M_EP_TC_1: "M_EP_TC_1", M_EP_TF_1: "M_EP_TF_1",
	M_PS_NA_1: "M_PS_NA_1",
	M_EI_NA_1: "M_EI_NA_1",
	C_SC_NA_1: "C_SC_NA_1", C_SC_TA_1: "C_SC_TA_1",
	C_DC_NA_1: "C_DC_NA_1", C_DC_TA_1: "C_DC_TA_1",
	C_RC_NA_1: "C_RC_NA_1", C_RC_TA_1: "C_RC_TA_1",
	C_SE_NA_1: "C_SE_NA_1", C_SE_TA_1: "C_SE_TA_1",
	C_SE_NB_1: "C_SE_NB_1", C_SE_TB_1: "C_SE_TB_1",
	C_SE_NC_1: "C_SE_NC_1", C_SE_TC_1: "C_SE_TC_1",
	C_BO_NA_1: "C_BO_NA_1", C_BO_TA_1: "C_BO_TA_1",
	C_IC_NA_1: "C_IC_NA_1",
	C_CI_NA_1: "C_CI_NA_1",
	C_RD_NA_1: "C_RD_NA_1",
	C_CS_NA_1: "C_CS_NA_1",
	C_TS_NA_1: "C_TS_NA_1", C_TS_TA_1: "C_TS_TA_1",
	C_RP_NA_1: "C_RP_NA_1",
	C_CD_NA_1: "C_CD_NA_1",
	P_ME_NA_1: "P_ME_NA_1", P_ME_NB_1: "P_ME_NB_1", P_ME_NC_1: "P_ME_NC_1",
	P_AC_NA_1: "P_AC_NA_1",
}

// M_EI_NA_1 (end of initialization) sits outside the contiguous monitor-info
// band assigned above; value fixed by the standard at 70.
const M_EI_NA_1 TypeID = 70

// Cause is the cause-of-transmission enumeration, companion standard 101
// 7.2.3.
type Cause uint8

// Standard causes of transmission, companion standard 101 7.2.3, table 15.
const (
	Unused Cause = iota
	Periodic
	Background
	Spontaneous
	Initialized
	Request
	Activation
	ActivationConfirm
	Deactivation
	DeactivationConfirm
	ActivationTermination
	ReturnInfoRemote
	ReturnInfoLocal
	// 13-19 reserved for further compatible definitions.
	FileTransfer Cause = 13

	Requested Cause = 20
	// 20: station interrogation; 21-36: group 1..16 interrogation.
	InterrogatedByStation Cause = 20
	InterrogatedByGroup16 Cause = 36
	RequestByGeneralCounter Cause = 37
	RequestByGroup1Counter  Cause = 38
	RequestByGroup2Counter  Cause = 39
	RequestByGroup3Counter  Cause = 40
	RequestByGroup4Counter  Cause = 41

	// 44-47: negative acknowledgment of the indicated error.
	UnknownTypeID              Cause = 44
	UnknownCauseOfTransmission Cause = 45
	UnknownCommonAddrOfASDU    Cause = 46
	UnknownInfoObjAddr         Cause = 47
)

// TestFlag marks a cause of transmission as a test frame; it is ORed into
// the wire byte alongside the 6-bit cause and the negative-confirm bit.
const TestFlag Cause = 0x80

// NegativeFlag marks a negative confirmation; companion standard 101 7.2.3.
const NegativeFlag Cause = 0x40

func (c Cause) String() string {
	name, ok := causeNames[c&0x3f]
	if !ok {
		name = fmt.Sprintf("Cause(%d)", uint8(c&0x3f))
	}
	if c&NegativeFlag != 0 {
		name += "|Neg"
	}
	if c&TestFlag != 0 {
		name += "|Test"
	}
	return name
}

var causeNames = map[Cause]string{
	Unused:                     "Unused",
	Periodic:                   "Periodic",
	Background:                 "Background",
	Spontaneous:                "Spontaneous",
	Initialized:                "Initialized",
	Request:                    "Request",
	Activation:                 "Activation",
	ActivationConfirm:          "ActivationConfirm",
	Deactivation:               "Deactivation",
	DeactivationConfirm:        "DeactivationConfirm",
	ActivationTermination:      "ActivationTermination",
	ReturnInfoRemote:           "ReturnInfoRemote",
	ReturnInfoLocal:            "ReturnInfoLocal",
	Requested:                  "Requested",
	RequestByGeneralCounter:    "RequestByGeneralCounter",
	RequestByGroup1Counter:     "RequestByGroup1Counter",
	RequestByGroup2Counter:     "RequestByGroup2Counter",
	RequestByGroup3Counter:     "RequestByGroup3Counter",
	RequestByGroup4Counter:     "RequestByGroup4Counter",
	UnknownTypeID:              "UnknownTypeID",
	UnknownCauseOfTransmission: "UnknownCauseOfTransmission",
	UnknownCommonAddrOfASDU:    "UnknownCommonAddrOfASDU",
	UnknownInfoObjAddr:         "UnknownInfoObjAddr",
}

// CauseOfTransmission is the decoded cause-of-transmission octet: a 6-bit
// cause plus the test and negative-confirmation flag bits.
type CauseOfTransmission struct {
	Cause      Cause
	IsTest     bool
	IsNegative bool
}

// Value encodes the cause of transmission back into its wire octet.
func (c CauseOfTransmission) Value() byte {
	v := byte(c.Cause) & 0x3f
	if c.IsNegative {
		v |= byte(NegativeFlag)
	}
	if c.IsTest {
		v |= byte(TestFlag)
	}
	return v
}

func (c CauseOfTransmission) String() string {
	s := c.Cause.String()
	if c.IsNegative {
		s += "|Neg"
	}
	if c.IsTest {
		s += "|Test"
	}
	return s
}

// ParseCauseOfTransmission decodes the cause-of-transmission octet.
func ParseCauseOfTransmission(b byte) CauseOfTransmission {
	return CauseOfTransmission{
		Cause:      Cause(b & 0x3f),
		IsNegative: b&byte(NegativeFlag) != 0,
		IsTest:     b&byte(TestFlag) != 0,
	}
}

// VariableStruct is the variable structure qualifier, companion standard
// 101 7.2.2: the count of information objects/elements plus the SQ bit that
// says whether the objects share one sequential information-object address.
type VariableStruct struct {
	IsSequence bool
	Number     byte // 0..127
}

// sqFlag is the variable structure qualifier's sequence bit.
const sqFlag = 0x80

// Value encodes the variable structure qualifier back into its wire octet.
func (v VariableStruct) Value() byte {
	n := v.Number & 0x7f
	if v.IsSequence {
		n |= sqFlag
	}
	return n
}

func (v VariableStruct) String() string {
	if v.IsSequence {
		return fmt.Sprintf("seq:%d", v.Number)
	}
	return fmt.Sprintf("num:%d", v.Number)
}

// ParseVariableStruct decodes the variable structure qualifier octet.
func ParseVariableStruct(b byte) VariableStruct {
	return VariableStruct{
		IsSequence: b&sqFlag != 0,
		Number:     b &^ sqFlag,
	}
}
