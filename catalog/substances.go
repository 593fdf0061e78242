package catalog

import "github.com/zyedidia/generic/mapset"

const (
	COLONY          Type = "COLONY"
	FOOD            Type = "FOOD"
	ALERT           Type = "ALERT"
	FOLLOW          Type = "FOLLOW"
	LIGHT           Type = "LIGHT"
	WATER           Type = "WATER"
	STEAM           Type = "STEAM"
	OIL             Type = "OIL"
	HOT_OIL         Type = "HOT_OIL"
	SULPHUR_DIOXIDE Type = "SULPHUR_DIOXIDE"
	SAND            Type = "SAND"
	MOLTEN_SAND     Type = "MOLTEN_SAND"
	MOLTEN_IRON     Type = "MOLTEN_IRON"
	MOLTEN_STEEL    Type = "MOLTEN_STEEL"
	HEAT            Type = "HEAT"
	COLD            Type = "COLD"
)

func kinds(groups ...[]Kind) mapset.Set[Kind] {
	set := mapset.New[Kind]()
	for _, group := range groups {
		for _, kind := range group {
			set.Put(kind)
		}
	}
	return set
}

func rate(r float64) *float64 {
	return &r
}

// Fluids all share the same bulk parameters; only their viscosity and phase behavior differ.
func fluid(name Type, quantityCap float64, vis Viscosity, rising bool) PheromoneType {
	return PheromoneType{
		Name:          name,
		QuantityCap:   quantityCap,
		DecayAmount:   quantityCap,
		DecayRate:     rate(0.0005),
		BlockingKinds: kinds(DefaultBlockers),
		IsDispersing:  true,
		Fluid:         &Fluid{Viscosity: vis, IsRising: rising},
	}
}

func defaults() []PheromoneType {
	water := fluid(WATER, 120, Viscosity{0, 0.5, 0.8}, false)
	water.Color = "rgb(100, 205, 226)"
	water.Heat = &Transition{Point: 100, To: STEAM, Rate: 1.0 / 60}
	water.Cool = &Cooling{Point: -100, Rate: 1, Concentration: 5, Solid: ICE}

	steam := fluid(STEAM, 120, Viscosity{0, 0.3, 0.66}, true)
	steam.Color = "rgb(255, 255, 255)"
	steam.Cool = &Cooling{Point: 5, To: WATER, Rate: 0.1, Concentration: 60}

	oil := fluid(OIL, 120, Viscosity{0, 0.8, 0.9}, false)
	oil.Color = "rgb(0, 0, 0)"
	oil.BlockingKinds = kinds(DefaultBlockers, []Kind{COAL})
	oil.Heat = &Transition{Point: 10, To: SULPHUR_DIOXIDE, Rate: 0.02}
	oil.Combustion = &Transition{Point: 126, To: HOT_OIL, Rate: 1}

	hotOil := fluid(HOT_OIL, 120, Viscosity{0, 0.5, 0.8}, false)
	hotOil.Color = "rgb(150, 88, 101)"
	hotOil.DecayRate = rate(1)
	hotOil.DecaysWhenPooled = true
	hotOil.BlockingKinds = kinds(DefaultBlockers, []Kind{COAL})

	sulphurDioxide := fluid(SULPHUR_DIOXIDE, 120, Viscosity{0, 0.3, 0.66}, true)
	sulphurDioxide.Color = "rgb(155, 227, 90)"
	sulphurDioxide.Cool = &Cooling{Point: -5, Rate: 1, Concentration: 80, Solid: SULPHUR}

	sand := fluid(SAND, 120, Viscosity{0, 0.5, 1}, false)
	sand.Color = "rgb(250, 240, 70)"
	sand.BlockingKinds = kinds(DefaultBlockers, []Kind{COAL})
	sand.BlockingPheromones = []Type{MOLTEN_SAND}
	sand.Heat = &Transition{Point: 100, To: MOLTEN_SAND, Rate: 1}

	moltenSand := fluid(MOLTEN_SAND, 120, Viscosity{0, 0.5, 0.8}, false)
	moltenSand.Color = "rgb(215, 88, 101)"
	moltenSand.BlockingPheromones = []Type{SAND, MOLTEN_IRON, MOLTEN_STEEL}
	moltenSand.Cool = &Cooling{Point: 5, Rate: 1, Concentration: 9, Solid: GLASS}

	moltenIron := fluid(MOLTEN_IRON, 120, Viscosity{0, 0, 1}, false)
	moltenIron.Color = "rgb(100, 100, 100)"
	moltenIron.BlockingPheromones = []Type{MOLTEN_STEEL, MOLTEN_SAND, SAND}
	moltenIron.Cool = &Cooling{Point: 80, Rate: 1, Solid: IRON}

	moltenSteel := fluid(MOLTEN_STEEL, 240, Viscosity{0, 0, 1}, false)
	moltenSteel.Color = "rgb(220, 220, 220)"
	moltenSteel.BlockingPheromones = []Type{MOLTEN_IRON, MOLTEN_SAND, SAND}
	moltenSteel.Cool = &Cooling{Point: 90, Rate: 1, Solid: STEEL}

	return []PheromoneType{
		{
			Name:          COLONY,
			QuantityCap:   350,
			DecayAmount:   1,
			BlockingKinds: kinds(DefaultBlockers),
			Color:         "rgb(155, 227, 90)",
		},
		{
			Name:          FOOD,
			QuantityCap:   100,
			DecayAmount:   40,
			DecayRate:     rate(0.03),
			BlockingKinds: kinds(DefaultBlockers),
			IsDispersing:  true,
			Color:         "rgb(0, 255, 0)",
		},
		{
			Name:          ALERT,
			QuantityCap:   60,
			DecayAmount:   10,
			DecayRate:     rate(0.5),
			BlockingKinds: kinds(DefaultBlockers),
			IsDispersing:  true,
			Color:         "rgb(255, 0, 0)",
		},
		{
			Name:          FOLLOW,
			QuantityCap:   100,
			DecayAmount:   100,
			DecayRate:     rate(0.1),
			BlockingKinds: kinds(DefaultBlockers),
			IsDispersing:  true,
			Color:         "rgb(210, 105, 30)",
		},
		{
			Name:          LIGHT,
			QuantityCap:   350,
			DecayAmount:   1,
			BlockingKinds: kinds(DefaultBlockers, []Kind{COAL, TURBINE}),
			Color:         "rgb(155, 227, 90)",
		},
		water,
		steam,
		oil,
		hotOil,
		sulphurDioxide,
		sand,
		moltenSand,
		moltenIron,
		moltenSteel,
		{
			Name:          HEAT,
			QuantityCap:   150,
			DecayAmount:   15,
			DecayRate:     rate(1),
			BlockingKinds: kinds(NonMoltenBlockers),
			IsDispersing:  true,
			Color:         "rgb(255, 0, 0)",
		},
		{
			Name:          COLD,
			QuantityCap:   120,
			DecayAmount:   12,
			DecayRate:     rate(1),
			BlockingKinds: kinds(NonMoltenBlockers),
			IsDispersing:  true,
			Color:         "rgb(100, 205, 226)",
		},
	}
}
