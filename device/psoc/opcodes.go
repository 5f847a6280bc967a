/*
 * === This file is part of AESOP-Lite Control ===
 *
 * Copyright 2019-2024 the AESOP-Lite collaboration.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package psoc

// Event PSOC command opcodes, from the DAQ firmware command dispatcher.
const (
	cmdSetThresholdDAC  = 0x01
	cmdGetThresholdDAC  = 0x02
	cmdReadErrors       = 0x03
	cmdSetTOFDAC        = 0x04
	cmdGetTOFDAC        = 0x05
	cmdLED              = 0x06
	cmdFirmwareVersion  = 0x07
	cmdTracker          = 0x10
	cmdBusVoltage       = 0x20
	cmdShuntCurrent     = 0x21
	cmdBoardTemperature = 0x22
	cmdEndOfRunCount    = 0x33
	cmdSetTriggerMask   = 0x36
	cmdChannelCount     = 0x37
	cmdLogicReset       = 0x38
	cmdTriggerPrescale  = 0x39
	cmdTriggerWindow    = 0x3A
	cmdTriggerEnable    = 0x3B
	cmdStartRun         = 0x3C
	cmdTriggerStatus    = 0x3D
	cmdGetTriggerMask   = 0x3E
	cmdLoadASICMask     = 0x41
	cmdCalStrobe        = 0x42
	cmdReadCalEvent     = 0x43
	cmdEndRun           = 0x44
	cmdSetRTC           = 0x45
	cmdGetRTC           = 0x46
	cmdTrackerReset     = 0x47
	cmdCalibrateTiming  = 0x48
)

// Tracker commands, carried as the payload of cmdTracker addressed to a
// board id. These ride the tracker UART string behind the PSOC.
const (
	tkrCmdTriggerSource    = 0x01
	tkrCmdGetTriggerSource = 0x02
	tkrCmdTriggerDisable   = 0x03
	tkrCmdSetLayerCount    = 0x04
	tkrCmdFPGAReset        = 0x05
	tkrCmdConfigReset      = 0x06
	tkrCmdLogicReset       = 0x07
	tkrCmdDualTrigger      = 0x08
	tkrCmdPowerOn          = 0x09
	tkrCmdPowerOff         = 0x0A
	tkrCmdHardReset        = 0x0B
	tkrCmdSoftReset        = 0x0C
	tkrCmdLoadConfig       = 0x0D
	tkrCmdGetConfig        = 0x0E
	tkrCmdSetDAC           = 0x0F
	tkrCmdGetDAC           = 0x11
	tkrCmdSetDataMask      = 0x12
	tkrCmdGetDataMask      = 0x13
	tkrCmdSetTriggerMask   = 0x14
	tkrCmdGetTriggerMask   = 0x15
	tkrCmdFPGAConfig       = 0x16
	tkrCmdCodeVersion      = 0x17
	tkrCmdTemperature      = 0x18
	tkrCmdLayerTrigCount   = 0x19
)

// Prescale target codes for cmdTriggerPrescale.
var prescaleTargets = map[string]byte{
	"PMT": 1,
	"TKR": 2,
}
