package dispatch

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"everwatt-battery-optimizer/internal/tariff"
)

// Action is a human-friendly operating mode for one interval of a solved
// dispatch, the way the teacher's model.Action labels a backtest timestep.
type Action string

const (
	ActionCharging    Action = "CHARGING"
	ActionIdle        Action = "IDLE"
	ActionDischarging Action = "DISCHARGING"
)

const actionEpsilonKW = 1e-6

// ActionFromChargeDischarge classifies an interval's dispatch by whichever
// of charge/discharge is nonzero.
func ActionFromChargeDischarge(chargeKW, dischargeKW float64) Action {
	switch {
	case chargeKW > actionEpsilonKW:
		return ActionCharging
	case dischargeKW > actionEpsilonKW:
		return ActionDischarging
	default:
		return ActionIdle
	}
}

// WriteLedgerCSV writes one row per interval of a solved dispatch: the
// timestamp, base load, charge/discharge/SOC/net values, and the derived
// action label. Column shape mirrors the teacher's backtest.WriteLedgerCSV.
func WriteLedgerCSV(path string, intervals []tariff.Interval, sol Solution) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"index", "timestamp", "kw_base", "charge_kw", "discharge_kw",
		"soc_kwh", "net_kw", "action",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, iv := range intervals {
		chargeKW := valueAt(sol.ChargeKWSeries, i)
		dischargeKW := valueAt(sol.DischargeKWSeries, i)
		row := []string{
			strconv.Itoa(i),
			fmtTime(iv.TS),
			fmtFloat(iv.KWBase),
			fmtFloat(chargeKW),
			fmtFloat(dischargeKW),
			fmtFloat(valueAt(sol.SOCKWhSeries, i)),
			fmtFloat(valueAt(sol.NetLoadKWSeries, i)),
			string(ActionFromChargeDischarge(chargeKW, dischargeKW)),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func valueAt(series []float64, i int) float64 {
	if i < 0 || i >= len(series) {
		return 0
	}
	return series[i]
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
