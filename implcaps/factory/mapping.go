package factory

import (
	"github.com/shimmeringbee/da"
	da_capabilities "github.com/shimmeringbee/da/capabilities"
	"github.com/shimmeringbee/tda/capabilities"
	"github.com/shimmeringbee/tda/implcaps"
	"github.com/shimmeringbee/tda/implcaps/generic/product_information"
	"github.com/shimmeringbee/tda/implcaps/tuya/lawn_mower"
)

const GenericProductInformation = "GenericProductInformation"
const TuyaLawnMower = "TuyaLawnMower"
const TuyaExtendedLawnMower = "TuyaExtendedLawnMower"

var Mapping = map[string]da.Capability{
	GenericProductInformation: da_capabilities.ProductInformationFlag,
	TuyaLawnMower:             capabilities.LawnMowerFlag,
	TuyaExtendedLawnMower:     capabilities.LawnMowerFlag,
}

func Create(name string, iface implcaps.TDAInterface) implcaps.TDACapability {
	switch name {
	case GenericProductInformation:
		return product_information.NewProductInformation()
	case TuyaLawnMower:
		return lawn_mower.NewLawnMower(iface)
	case TuyaExtendedLawnMower:
		return lawn_mower.NewExtendedLawnMower(iface)
	default:
		return nil
	}
}
