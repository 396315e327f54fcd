package heatpump

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	// Exponent of the exergetic load-ratio relation between test records.
	exergyExponent = 3.0

	// Offset applied to repeated test temperatures so interpolation never
	// divides by a zero temperature difference.
	dedupOffset = 1e-10

	// TestLetterColdest selects the record with the lowest test temperature
	// in a group, regardless of its test letter.
	TestLetterColdest = "cld"
)

// tempSpreadTestConditions gives the temperature spread at test conditions
// for each design flow temperature covered by EN 14825.
var tempSpreadTestConditions = map[float64]float64{
	35.0: 5.0,
	55.0: 8.0,
	65.0: 10.0,
}

// TestRecord is one manufacturer test measurement at a given design flow
// temperature. Raw fields are in Celsius and kW as supplied; the derived
// fields are computed during normalization using absolute temperatures.
type TestRecord struct {
	TestLetter       string  `json:"test_letter"`
	Capacity         float64 `json:"capacity"`
	COP              float64 `json:"cop"`
	DegradationCoeff float64 `json:"degradation_coeff"`
	DesignFlowTemp   float64 `json:"design_flow_temp"`
	TempOutlet       float64 `json:"temp_outlet"`
	TempSource       float64 `json:"temp_source"`
	TempTest         float64 `json:"temp_test"`

	// Derived during normalization.
	CarnotCOP            float64 `json:"-"`
	ExergeticEff         float64 `json:"-"`
	TheoreticalLoadRatio float64 `json:"-"`
}

func (r *TestRecord) tempOutletK() float64 { return celsiusToKelvin(r.TempOutlet) }
func (r *TestRecord) tempSourceK() float64 { return celsiusToKelvin(r.TempSource) }

// testDataGroup holds the normalized records for one design flow temperature
// together with the per-group derived scalars.
type testDataGroup struct {
	records          []TestRecord // ascending by test temperature
	averageCapacity  float64
	averageDegCoeff  float64
	tempSpreadTest   float64
	regressionCoeffs [3]float64 // COP vs test temperature (Celsius), ascending powers
}

// TestData is the normalized manufacturer test data set. It is built once at
// construction and immutable thereafter.
type TestData struct {
	dsgnFlowTemps []float64 // ascending, Celsius
	groups        map[float64]*testDataGroup
}

// NewTestData validates, deduplicates, sorts and derives the raw test
// records. It fails with ConfigurationError when the data set cannot support
// the interpolation queries.
func NewTestData(records []TestRecord) (*TestData, error) {
	if len(records) == 0 {
		return nil, &ConfigurationError{Field: "test_data", Reason: "no test records supplied"}
	}

	grouped := make(map[float64][]TestRecord)
	duplicates := make(map[float64]int)
	seen := make(map[float64]map[float64]int)
	for _, rec := range records {
		// Count earlier records in the group sharing this raw test temperature
		// and perturb repeats so every test temperature in a group is
		// distinct. The offset grows with the repeat count so a third record
		// at the same temperature stays distinct from the second.
		if seen[rec.DesignFlowTemp] == nil {
			seen[rec.DesignFlowTemp] = make(map[float64]int)
		}
		repeats := seen[rec.DesignFlowTemp][rec.TempTest]
		seen[rec.DesignFlowTemp][rec.TempTest] = repeats + 1
		if repeats > 0 {
			rec.TempTest += dedupOffset * float64(repeats)
			rec.TempSource += dedupOffset * float64(repeats)
			duplicates[rec.DesignFlowTemp]++
		}
		grouped[rec.DesignFlowTemp] = append(grouped[rec.DesignFlowTemp], rec)
	}

	if len(grouped) > 2 {
		return nil, &ConfigurationError{
			Field:  "test_data",
			Reason: "more than 2 design flow temperatures",
		}
	}

	dsgnFlowTemps := make([]float64, 0, len(grouped))
	for flowTemp := range grouped {
		dsgnFlowTemps = append(dsgnFlowTemps, flowTemp)
	}
	sort.Float64s(dsgnFlowTemps)

	groups := make(map[float64]*testDataGroup, len(grouped))
	for _, flowTemp := range dsgnFlowTemps {
		group, err := newTestDataGroup(flowTemp, grouped[flowTemp], duplicates[flowTemp])
		if err != nil {
			return nil, err
		}
		groups[flowTemp] = group
	}

	return &TestData{dsgnFlowTemps: dsgnFlowTemps, groups: groups}, nil
}

func newTestDataGroup(flowTemp float64, records []TestRecord, duplicates int) (*testDataGroup, error) {
	if duplicates > 0 {
		if len(records)-duplicates != 4 {
			return nil, &ConfigurationError{
				Field:  "test_data",
				Reason: "group with duplicate records must have 4 distinct test temperatures",
			}
		}
	} else {
		if len(records) != 5 {
			return nil, &ConfigurationError{
				Field:  "test_data",
				Reason: "group must have 5 test records",
			}
		}
		letters := make(map[string]bool, len(records))
		for _, rec := range records {
			letters[rec.TestLetter] = true
		}
		for _, letter := range []string{"A", "B", "C", "D", "F"} {
			if !letters[letter] {
				return nil, &ConfigurationError{
					Field:  "test_data",
					Reason: "group is missing test letter " + letter,
				}
			}
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].TempTest < records[j].TempTest
	})

	// Derived per-record quantities, relative to the coldest record.
	for i := range records {
		rec := &records[i]
		rec.CarnotCOP = rec.tempOutletK() / (rec.tempOutletK() - rec.tempSourceK())
		rec.ExergeticEff = rec.COP / rec.CarnotCOP
	}
	cld := records[0]
	for i := range records {
		rec := &records[i]
		rec.TheoreticalLoadRatio = (rec.CarnotCOP / cld.CarnotCOP) *
			math.Pow(cld.tempOutletK()*rec.tempSourceK()/(cld.tempSourceK()*rec.tempOutletK()), exergyExponent)
	}

	// Aggregate quantities over test letters A-D; F is a repeat of A at the
	// same conditions and would double-count.
	var capacities, degCoeffs, testTemps, cops []float64
	for _, rec := range records {
		switch rec.TestLetter {
		case "A", "B", "C", "D":
			capacities = append(capacities, rec.Capacity)
			degCoeffs = append(degCoeffs, rec.DegradationCoeff)
		}
		testTemps = append(testTemps, rec.TempTest)
		cops = append(cops, rec.COP)
	}
	if len(capacities) != 4 {
		return nil, &ConfigurationError{
			Field:  "test_data",
			Reason: "group must contain test letters A, B, C and D exactly once",
		}
	}

	spread, ok := tempSpreadTestConditions[flowTemp]
	if !ok {
		return nil, &ConfigurationError{
			Field:  "test_data",
			Reason: "no temperature spread defined for this design flow temperature",
		}
	}

	coeffs, err := polyfitQuadratic(testTemps, cops)
	if err != nil {
		return nil, err
	}

	return &testDataGroup{
		records:          records,
		averageCapacity:  stat.Mean(capacities, nil),
		averageDegCoeff:  stat.Mean(degCoeffs, nil),
		tempSpreadTest:   spread,
		regressionCoeffs: coeffs,
	}, nil
}

// polyfitQuadratic fits a degree-2 least-squares polynomial y(x) and returns
// its coefficients in ascending powers.
func polyfitQuadratic(x, y []float64) ([3]float64, error) {
	a := mat.NewDense(len(x), 3, nil)
	for i, xi := range x {
		a.Set(i, 0, 1.0)
		a.Set(i, 1, xi)
		a.Set(i, 2, xi*xi)
	}
	b := mat.NewVecDense(len(y), y)

	var qr mat.QR
	qr.Factorize(a)
	var c mat.VecDense
	if err := qr.SolveVecTo(&c, false, b); err != nil {
		return [3]float64{}, &ConfigurationError{
			Field:  "test_data",
			Reason: "COP regression is singular: " + err.Error(),
		}
	}
	return [3]float64{c.AtVec(0), c.AtVec(1), c.AtVec(2)}, nil
}

func polyval(coeffs [3]float64, x float64) float64 {
	return coeffs[0] + coeffs[1]*x + coeffs[2]*x*x
}

// DesignFlowTemps returns the design flow temperatures (Celsius, ascending).
func (td *TestData) DesignFlowTemps() []float64 {
	out := make([]float64, len(td.dsgnFlowTemps))
	copy(out, td.dsgnFlowTemps)
	return out
}

// interpolate evaluates a per-group quantity at the requested flow
// temperature (Kelvin). With a single group the group value is returned
// unmodified; with two groups the value is linearly interpolated by Celsius
// flow temperature.
func (td *TestData) interpolate(flowTemp float64, value func(*testDataGroup) float64) float64 {
	first := td.groups[td.dsgnFlowTemps[0]]
	if len(td.dsgnFlowTemps) == 1 {
		return value(first)
	}
	last := td.groups[td.dsgnFlowTemps[1]]
	flowTempC := kelvinToCelsius(flowTemp)
	frac := (flowTempC - td.dsgnFlowTemps[0]) / (td.dsgnFlowTemps[1] - td.dsgnFlowTemps[0])
	v0 := value(first)
	return v0 + frac*(value(last)-v0)
}

// recordAt finds the record for a test letter, or the coldest record of the
// group when letter is TestLetterColdest.
func (g *testDataGroup) recordAt(letter string) *TestRecord {
	if letter == TestLetterColdest {
		return &g.records[0]
	}
	for i := range g.records {
		if g.records[i].TestLetter == letter {
			return &g.records[i]
		}
	}
	return &g.records[len(g.records)-1]
}

// AverageCapacity returns the mean capacity over test letters A-D (kW) at
// the given flow temperature (Kelvin).
func (td *TestData) AverageCapacity(flowTemp float64) float64 {
	return td.interpolate(flowTemp, func(g *testDataGroup) float64 { return g.averageCapacity })
}

// AverageDegradationCoeff returns the mean degradation coefficient over test
// letters A-D at the given flow temperature (Kelvin).
func (td *TestData) AverageDegradationCoeff(flowTemp float64) float64 {
	return td.interpolate(flowTemp, func(g *testDataGroup) float64 { return g.averageDegCoeff })
}

// TempSpreadTestConditions returns the temperature spread at test conditions
// (K) at the given flow temperature (Kelvin).
func (td *TestData) TempSpreadTestConditions(flowTemp float64) float64 {
	return td.interpolate(flowTemp, func(g *testDataGroup) float64 { return g.tempSpreadTest })
}

// CarnotCOPAtTestCondition returns the Carnot COP of the record selected by
// letter (or TestLetterColdest) at the given flow temperature (Kelvin).
func (td *TestData) CarnotCOPAtTestCondition(letter string, flowTemp float64) float64 {
	return td.interpolate(flowTemp, func(g *testDataGroup) float64 { return g.recordAt(letter).CarnotCOP })
}

// OutletTempAtTestCondition returns the outlet temperature (Kelvin) of the
// selected record at the given flow temperature (Kelvin).
func (td *TestData) OutletTempAtTestCondition(letter string, flowTemp float64) float64 {
	return td.interpolate(flowTemp, func(g *testDataGroup) float64 { return g.recordAt(letter).tempOutletK() })
}

// SourceTempAtTestCondition returns the source temperature (Kelvin) of the
// selected record at the given flow temperature (Kelvin).
func (td *TestData) SourceTempAtTestCondition(letter string, flowTemp float64) float64 {
	return td.interpolate(flowTemp, func(g *testDataGroup) float64 { return g.recordAt(letter).tempSourceK() })
}

// CapacityAtTestCondition returns the capacity (kW) of the selected record at
// the given flow temperature (Kelvin).
func (td *TestData) CapacityAtTestCondition(letter string, flowTemp float64) float64 {
	return td.interpolate(flowTemp, func(g *testDataGroup) float64 { return g.recordAt(letter).Capacity })
}

// LoadRatioAtOperatingConditions returns the exergetic load ratio at the
// operating conditions, relative to each group's coldest record and floored
// at 1.0 per group before interpolating across groups. All temperatures are
// in Kelvin; the flow temperature doubles as the operating outlet
// temperature.
func (td *TestData) LoadRatioAtOperatingConditions(flowTemp, tempSource, carnotCOPOpCond float64) float64 {
	return td.interpolate(flowTemp, func(g *testDataGroup) float64 {
		cld := &g.records[0]
		lr := (carnotCOPOpCond / cld.CarnotCOP) *
			math.Pow(cld.tempOutletK()*tempSource/(cld.tempSourceK()*flowTemp), exergyExponent)
		return math.Max(1.0, lr)
	})
}

// LoadRatioEffDegCoeffEitherSideOfOpCond brackets the exergy load ratio at
// operating conditions between two test records per group and returns the
// bracketing pair's load ratio, exergetic efficiency and degradation
// coefficient, each interpolated across groups by flow temperature (Kelvin).
func (td *TestData) LoadRatioEffDegCoeffEitherSideOfOpCond(flowTemp, exergyLoadRatio float64) (lrBelow, lrAbove, effBelow, effAbove, degBelow, degAbove float64) {
	// The record list is scanned in test-temperature order, not load-ratio
	// order, matching the reference calculation method.
	bracket := func(g *testDataGroup) (below, above *TestRecord) {
		for i := 1; i < len(g.records); i++ {
			if g.records[i].TheoreticalLoadRatio > exergyLoadRatio {
				return &g.records[i-1], &g.records[i]
			}
		}
		return &g.records[len(g.records)-2], &g.records[len(g.records)-1]
	}

	lrBelow = td.interpolate(flowTemp, func(g *testDataGroup) float64 {
		below, _ := bracket(g)
		return below.TheoreticalLoadRatio
	})
	lrAbove = td.interpolate(flowTemp, func(g *testDataGroup) float64 {
		_, above := bracket(g)
		return above.TheoreticalLoadRatio
	})
	effBelow = td.interpolate(flowTemp, func(g *testDataGroup) float64 {
		below, _ := bracket(g)
		return below.ExergeticEff
	})
	effAbove = td.interpolate(flowTemp, func(g *testDataGroup) float64 {
		_, above := bracket(g)
		return above.ExergeticEff
	})
	degBelow = td.interpolate(flowTemp, func(g *testDataGroup) float64 {
		below, _ := bracket(g)
		return below.DegradationCoeff
	})
	degAbove = td.interpolate(flowTemp, func(g *testDataGroup) float64 {
		_, above := bracket(g)
		return above.DegradationCoeff
	})
	return
}

// COPOpCondIfNotAirSource extrapolates COP to the operating conditions for
// sources whose temperature was effectively constant during testing. It
// evaluates the per-group quadratic COP regression at the external air
// temperature and scales by the ratio of the coldest-test temperature
// difference to the operating one, floored at tempDiffLimitLow. All
// temperatures in Kelvin.
func (td *TestData) COPOpCondIfNotAirSource(tempDiffLimitLow, tempExt, tempSource, tempOutput float64) float64 {
	tempExtC := kelvinToCelsius(tempExt)
	tempDiffOp := math.Max(tempOutput-tempSource, tempDiffLimitLow)
	return td.interpolate(tempOutput, func(g *testDataGroup) float64 {
		cld := &g.records[0]
		return polyval(g.regressionCoeffs, tempExtC) *
			(cld.tempOutletK() - cld.tempSourceK()) / tempDiffOp
	})
}

// CapacityOpCondIfNotAirSource extrapolates thermal capacity (kW) to the
// operating conditions for non-air sources. With modulating control the
// capacity follows the cubic exergy relation from the coldest record;
// without it, capacity is interpolated linearly between the coldest and "D"
// records on source-to-outlet temperature difference. All temperatures in
// Kelvin.
func (td *TestData) CapacityOpCondIfNotAirSource(tempOutput, tempSource float64, modCtrl bool) float64 {
	return td.interpolate(tempOutput, func(g *testDataGroup) float64 {
		cld := &g.records[0]
		if modCtrl {
			return cld.Capacity *
				math.Pow(cld.tempOutletK()*tempSource/(cld.tempSourceK()*tempOutput), exergyExponent)
		}
		recD := g.recordAt("D")
		tempDiffCld := cld.tempOutletK() - cld.tempSourceK()
		tempDiffD := recD.tempOutletK() - recD.tempSourceK()
		tempDiffOp := tempOutput - tempSource
		return cld.Capacity + (recD.Capacity-cld.Capacity)*
			(tempDiffCld-tempDiffOp)/(tempDiffCld-tempDiffD)
	})
}
