package survey

import (
	"math"

	"github.com/ukydev/fleet-logbook/internal/models"
)

// WGS-84 ellipsoid.
const (
	wgs84A = 6378137.0
	wgs84F = 1 / 298.257223563
	wgs84B = wgs84A * (1 - wgs84F)
)

const (
	convergence   = 1e-12
	maxIterations = 100
)

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
func toDeg(rad float64) float64 { return rad * 180 / math.Pi }

// normalizeBearing maps degrees into [0, 360).
func normalizeBearing(deg float64) float64 {
	b := math.Mod(deg, 360)
	if b < 0 {
		b += 360
	}
	return b
}

// normalizeLon maps degrees into [-180, 180).
func normalizeLon(deg float64) float64 {
	return math.Mod(deg+540, 360) - 180
}

// angleDiff is the unsigned angle between two bearings, in [0, 180].
func angleDiff(a, b float64) float64 {
	d := math.Abs(normalizeBearing(a) - normalizeBearing(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Destination solves the direct geodesic problem on the WGS-84 ellipsoid
// (Vincenty): the point reached from p after distance metres on the given
// initial bearing.
func Destination(p models.Location, distance, bearing float64) models.Location {
	phi1 := toRad(p.Lat)
	lambda1 := toRad(p.Lon)
	alpha1 := toRad(bearing)
	sinAlpha1, cosAlpha1 := math.Sincos(alpha1)

	tanU1 := (1 - wgs84F) * math.Tan(phi1)
	cosU1 := 1 / math.Sqrt(1+tanU1*tanU1)
	sinU1 := tanU1 * cosU1
	sigma1 := math.Atan2(tanU1, cosAlpha1)
	sinAlpha := cosU1 * sinAlpha1
	cosSqAlpha := 1 - sinAlpha*sinAlpha
	uSq := cosSqAlpha * (wgs84A*wgs84A - wgs84B*wgs84B) / (wgs84B * wgs84B)
	a := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	b := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))

	sigma := distance / (wgs84B * a)
	var sinSigma, cosSigma, cos2SigmaM float64
	for i := 0; i < maxIterations; i++ {
		cos2SigmaM = math.Cos(2*sigma1 + sigma)
		sinSigma, cosSigma = math.Sincos(sigma)
		deltaSigma := b * sinSigma * (cos2SigmaM + b/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
			b/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))
		prev := sigma
		sigma = distance/(wgs84B*a) + deltaSigma
		if math.Abs(sigma-prev) <= convergence {
			break
		}
	}
	cos2SigmaM = math.Cos(2*sigma1 + sigma)
	sinSigma, cosSigma = math.Sincos(sigma)

	x := sinU1*sinSigma - cosU1*cosSigma*cosAlpha1
	phi2 := math.Atan2(sinU1*cosSigma+cosU1*sinSigma*cosAlpha1, (1-wgs84F)*math.Sqrt(sinAlpha*sinAlpha+x*x))
	lambda := math.Atan2(sinSigma*sinAlpha1, cosU1*cosSigma-sinU1*sinSigma*cosAlpha1)
	c := wgs84F / 16 * cosSqAlpha * (4 + wgs84F*(4-3*cosSqAlpha))
	l := lambda - (1-c)*wgs84F*sinAlpha*(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))

	return models.Location{
		Lat: toDeg(phi2),
		Lon: normalizeLon(toDeg(lambda1 + l)),
	}
}

// Inverse solves the inverse geodesic problem on the WGS-84 ellipsoid
// (Vincenty): the distance in metres from p1 to p2 and the initial bearing
// in degrees. Coincident points give 0, 0. Near-antipodal points that do not
// converge within the iteration cap return the last iterate.
func Inverse(p1, p2 models.Location) (distance, bearing float64) {
	l := toRad(p2.Lon - p1.Lon)
	tanU1 := (1 - wgs84F) * math.Tan(toRad(p1.Lat))
	cosU1 := 1 / math.Sqrt(1+tanU1*tanU1)
	sinU1 := tanU1 * cosU1
	tanU2 := (1 - wgs84F) * math.Tan(toRad(p2.Lat))
	cosU2 := 1 / math.Sqrt(1+tanU2*tanU2)
	sinU2 := tanU2 * cosU2

	lambda := l
	var sinLambda, cosLambda, sinSigma, cosSigma, sigma, cosSqAlpha, cos2SigmaM float64
	for i := 0; i < maxIterations; i++ {
		sinLambda, cosLambda = math.Sincos(lambda)
		t := cosU1*sinU2 - sinU1*cosU2*cosLambda
		sinSqSigma := cosU2*sinLambda*cosU2*sinLambda + t*t
		if sinSqSigma == 0 {
			return 0, 0
		}
		sinSigma = math.Sqrt(sinSqSigma)
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)
		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha
		cos2SigmaM = 0 // equatorial line
		if cosSqAlpha != 0 {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cosSqAlpha
		}
		c := wgs84F / 16 * cosSqAlpha * (4 + wgs84F*(4-3*cosSqAlpha))
		prev := lambda
		lambda = l + (1-c)*wgs84F*sinAlpha*(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))
		if math.Abs(lambda-prev) <= convergence {
			break
		}
	}

	uSq := cosSqAlpha * (wgs84A*wgs84A - wgs84B*wgs84B) / (wgs84B * wgs84B)
	a := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	b := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := b * sinSigma * (cos2SigmaM + b/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
		b/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))

	distance = wgs84B * a * (sigma - deltaSigma)
	alpha1 := math.Atan2(cosU2*sinLambda, cosU1*sinU2-sinU1*cosU2*cosLambda)
	return distance, normalizeBearing(toDeg(alpha1))
}

// offset moves p sideways from a reference bearing: positive metres to
// starboard (bearing+90), negative to port.
func offset(p models.Location, metres, bearing float64) models.Location {
	if metres < 0 {
		return Destination(p, -metres, bearing-90)
	}
	return Destination(p, metres, bearing+90)
}
