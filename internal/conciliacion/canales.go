package conciliacion

// Canal is the stable identifier of a payment or sales-source channel.
// Labels may change; ids are what gets persisted.
type Canal string

const (
	CanalEfectivo      Canal = "efectivo"
	CanalTarjeta       Canal = "tarjeta"
	CanalTransferencia Canal = "transferencia"
	CanalGiftCard      Canal = "gift_card"

	CanalPedidosYaIceScroll Canal = "pedidos_ya_ice_scroll"
	CanalPedidosYaWafix     Canal = "pedidos_ya_wafix"
	CanalPedidosYaMix       Canal = "pedidos_ya_mix"
	CanalUberEats           Canal = "uber_eats"
	CanalJunaeb             Canal = "junaeb"
)

// InfoCanal describes a channel for display and for grouping.
type InfoCanal struct {
	ID       Canal  `json:"id"`
	Etiqueta string `json:"etiqueta"`
	Delivery bool   `json:"delivery"`
}

var catalogo = []InfoCanal{
	{ID: CanalEfectivo, Etiqueta: "Efectivo"},
	{ID: CanalTarjeta, Etiqueta: "Tarjetas"},
	{ID: CanalTransferencia, Etiqueta: "Transferencias"},
	{ID: CanalGiftCard, Etiqueta: "Gift Cards"},
	{ID: CanalPedidosYaIceScroll, Etiqueta: "Pedidos Ya Ice Scroll", Delivery: true},
	{ID: CanalPedidosYaWafix, Etiqueta: "Pedidos Ya Wafix", Delivery: true},
	{ID: CanalPedidosYaMix, Etiqueta: "Pedidos Ya Mix", Delivery: true},
	{ID: CanalUberEats, Etiqueta: "Uber Eats", Delivery: true},
	{ID: CanalJunaeb, Etiqueta: "Junaeb", Delivery: true},
}

// Canales returns the full catalog in display order.
func Canales() []InfoCanal {
	out := make([]InfoCanal, len(catalogo))
	copy(out, catalogo)
	return out
}

// CanalesDelivery returns only the delivery platforms, in display order.
func CanalesDelivery() []InfoCanal {
	var out []InfoCanal
	for _, c := range catalogo {
		if c.Delivery {
			out = append(out, c)
		}
	}
	return out
}

func BuscarCanal(id Canal) (InfoCanal, bool) {
	for _, c := range catalogo {
		if c.ID == id {
			return c, true
		}
	}
	return InfoCanal{}, false
}

// CanalPorEtiqueta resolves rows saved before channels carried a stable id.
func CanalPorEtiqueta(etiqueta string) (InfoCanal, bool) {
	for _, c := range catalogo {
		if c.Etiqueta == etiqueta {
			return c, true
		}
	}
	return InfoCanal{}, false
}

// Denominacion is a CLP note or coin face value.
type Denominacion int64

// Denominaciones lists every accepted face value, largest first.
var Denominaciones = []Denominacion{20000, 10000, 5000, 2000, 1000, 500, 100, 50, 10}

func EsDenominacion(v int64) bool {
	for _, d := range Denominaciones {
		if int64(d) == v {
			return true
		}
	}
	return false
}
