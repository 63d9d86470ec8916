package weather

// Animation is the animation category shown for a provider icon code.
type Animation string

const (
	AnimationSunny  Animation = "sunny"
	AnimationMoon   Animation = "moon"
	AnimationCloudy Animation = "cloudy"
	AnimationRain   Animation = "rain"
	AnimationStorm  Animation = "storm"
	AnimationSnow   Animation = "snow"
	AnimationMist   Animation = "mist"
)

// iconAnimations covers every documented provider icon code.
var iconAnimations = map[string]Animation{
	"01d": AnimationSunny,
	"01n": AnimationMoon,
	"02d": AnimationCloudy,
	"02n": AnimationCloudy,
	"03d": AnimationCloudy,
	"03n": AnimationCloudy,
	"04d": AnimationCloudy,
	"04n": AnimationCloudy,
	"09d": AnimationRain,
	"09n": AnimationRain,
	"10d": AnimationRain,
	"10n": AnimationRain,
	"11d": AnimationStorm,
	"11n": AnimationStorm,
	"13d": AnimationSnow,
	"13n": AnimationSnow,
	"50d": AnimationMist,
	"50n": AnimationMist,
}

// AnimationFor maps an icon code to its animation. Unknown codes map to sunny.
func AnimationFor(icon string) Animation {
	if a, ok := iconAnimations[icon]; ok {
		return a
	}
	return AnimationSunny
}

// Animations lists the fixed set of categories.
func Animations() []Animation {
	return []Animation{
		AnimationSunny,
		AnimationMoon,
		AnimationCloudy,
		AnimationRain,
		AnimationStorm,
		AnimationSnow,
		AnimationMist,
	}
}
