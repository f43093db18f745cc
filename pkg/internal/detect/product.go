package detect

import (
	"strconv"
	"strings"

	"github.com/hsk3232/DevelopProject/pkg/internal/model"
	"github.com/hsk3232/DevelopProject/pkg/internal/serial"
)

// ProductMismatch 检测产品信息与参考产品表、序列号规则不一致的物品.
type ProductMismatch struct{}

// Name 实现 Detector.
func (ProductMismatch) Name() string { return "product_mismatch" }

// Priority 实现 Detector.
func (ProductMismatch) Priority() int { return 2 }

// Detect 以物品的第一个事件为代表判断，命中时标记该物品的全部事件.
func (d ProductMismatch) Detect(in *Input, claimed ClaimSet) []model.RuleAnomaly {
	var out []model.RuleAnomaly

	for _, itemID := range in.Items {
		if claimed.Claimed(itemID) {
			continue
		}

		events := in.EventsByItem[itemID]
		if len(events) == 0 {
			continue
		}

		anomalyType, detail, hit := d.classify(in, &events[0])
		if !hit {
			continue
		}

		for i := range events {
			out = append(out, newAnomaly(in, &events[i], anomalyType, detail, d.Name()))
		}

		claimed.Claim(itemID)
	}

	return out
}

func (d ProductMismatch) classify(in *Input, rep *model.EventWithItem) (anomalyType, detail string, hit bool) {
	productOK := in.Lookup.IsKnownProductCode(rep.ProductCode)
	companyOK := in.Lookup.IsKnownCompanyCode(rep.CompanyCode)
	nameOK := in.Lookup.IsKnownProductName(rep.ProductName)

	serialNum, serialErr := strconv.Atoi(strings.TrimSpace(rep.Serial))

	if !productOK || !companyOK || !nameOK {
		partial := productOK || companyOK || nameOK
		knownLot := in.Serials.IsKnownLot(rep.Lot)
		plausibleSerial := serialErr == nil && in.Serials.IsPotentiallyValidSerial(serialNum)

		if partial || knownLot || plausibleSerial {
			return model.AnomalyTamper, model.DetailPartialMismatch, true
		}

		return model.AnomalyFake, model.DetailUnknownProduct, true
	}

	if serialErr != nil {
		return model.AnomalyTamper, model.DetailInvalidSerial, true
	}

	if !in.Serials.IsValid(serial.ExtractFactory(rep.HubType), rep.Lot, serialNum) {
		return model.AnomalyTamper, model.DetailSerialRule, true
	}

	return "", "", false
}
