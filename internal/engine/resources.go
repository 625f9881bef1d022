package engine

import (
	"github.com/roach88/homesync/internal/launcher"
	"github.com/roach88/homesync/internal/record"
	"github.com/roach88/homesync/internal/syncerr"
)

// backupIcons exports one icon per distinct application referenced by an
// application item. New icons are bounded by the icon quota.
func (p *pass) backupIcons(tr *TypeReport) ([]record.Key, error) {
	if p.e.resources == nil {
		return p.postpone(tr), nil
	}

	rows, err := p.e.source.EnumerateItems(p.ctx, launcher.ItemTypeApplication)
	if err != nil {
		return nil, syncerr.DataSource("enumerate application items", err)
	}

	saved := p.prior.SavedKeys(record.IconKey)
	quota := NewQuotaEnforcer(record.IconKey, p.e.iconQuota)
	live := newLiveSet()
	var keys []record.Key

	for _, row := range rows {
		cn, err := launcher.ParseIntentComponent(row.Intent)
		if err != nil {
			tr.Skipped++
			p.logger.Warn("skipping icon for unresolvable intent", "item", row.ID, "error", err)
			continue
		}
		key := record.NewNameKey(record.IconKey, cn.FlattenShort())
		if !live.add(key) {
			continue
		}
		if _, ok := saved[key]; ok {
			keys = append(keys, key)
			continue
		}
		if err := quota.Check(key); err != nil {
			p.deferKey(tr, key, err)
			continue
		}

		img, err := p.e.resources.ResolveIcon(p.ctx, cn)
		if err != nil {
			tr.Skipped++
			p.logger.Warn("icon lookup failed", "name", key.Name, "error", err)
			continue
		}
		if img == nil {
			// Nothing to export; remember it so it is not retried.
			keys = append(keys, key)
			p.logger.Debug("no icon to export", "name", key.Name)
			continue
		}

		data, err := p.e.codec.PackIcon(p.e.dpi, img)
		if err != nil {
			tr.Skipped++
			p.logger.Warn("icon encoding failed", "name", key.Name, "error", err)
			continue
		}
		if err := p.write(tr, key, data); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	p.settleQuota(tr, quota)
	if err := p.removeDeleted(tr, live); err != nil {
		return nil, err
	}
	return keys, nil
}

// backupWidgets exports one widget record per distinct provider referenced
// by a widget placement. New widgets are bounded by the widget quota.
func (p *pass) backupWidgets(tr *TypeReport) ([]record.Key, error) {
	if p.e.resources == nil {
		return p.postpone(tr), nil
	}

	rows, err := p.e.source.EnumerateItems(p.ctx, launcher.ItemTypeAppWidget)
	if err != nil {
		return nil, syncerr.DataSource("enumerate widget items", err)
	}

	saved := p.prior.SavedKeys(record.WidgetKey)
	quota := NewQuotaEnforcer(record.WidgetKey, p.e.widgetQuota)
	live := newLiveSet()
	var keys []record.Key

	for _, row := range rows {
		cn, err := launcher.ParseComponentName(row.AppWidgetProvider)
		if err != nil {
			tr.Skipped++
			p.logger.Warn("skipping widget with unparsable provider", "item", row.ID, "error", err)
			continue
		}
		key := record.NewNameKey(record.WidgetKey, cn.FlattenShort())
		if !live.add(key) {
			continue
		}
		if _, ok := saved[key]; ok {
			keys = append(keys, key)
			continue
		}

		info, ok, err := p.widgetProvider(cn)
		if err != nil {
			return nil, err
		}
		if !ok {
			tr.Skipped++
			p.logger.Warn("widget provider not installed", "name", key.Name)
			continue
		}
		if err := quota.Check(key); err != nil {
			p.deferKey(tr, key, err)
			continue
		}

		icon, err := p.e.resources.ResolveWidgetIcon(p.ctx, info)
		if err != nil {
			p.logger.Warn("widget icon lookup failed", "name", key.Name, "error", err)
			icon = nil
		}
		preview, err := p.e.resources.RenderWidgetPreview(p.ctx, info)
		if err != nil {
			p.logger.Warn("widget preview failed", "name", key.Name, "error", err)
			preview = nil
		}

		data, err := p.e.codec.PackWidget(p.e.dpi, info, icon, preview)
		if err != nil {
			tr.Skipped++
			p.logger.Warn("widget encoding failed", "name", key.Name, "error", err)
			continue
		}
		if err := p.write(tr, key, data); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	p.settleQuota(tr, quota)
	if err := p.removeDeleted(tr, live); err != nil {
		return nil, err
	}
	return keys, nil
}

// widgetProvider looks up an installed provider. The provider table is
// read once per pass.
func (p *pass) widgetProvider(cn launcher.ComponentName) (launcher.WidgetProviderInfo, bool, error) {
	if p.providers == nil {
		infos, err := p.e.resources.InstalledWidgetProviders(p.ctx)
		if err != nil {
			return launcher.WidgetProviderInfo{}, false, syncerr.DataSource("list widget providers", err)
		}
		p.providers = make(map[launcher.ComponentName]launcher.WidgetProviderInfo, len(infos))
		for _, info := range infos {
			p.providers[info.Provider] = info
		}
	}
	info, ok := p.providers[cn]
	return info, ok, nil
}

// deferKey leaves key for a later pass.
func (p *pass) deferKey(tr *TypeReport, key record.Key, err error) {
	p.report.Deferred = append(p.report.Deferred, key)
	p.wantAnotherPass = true
	p.logger.Debug("deferred by quota", "type", tr.Type.String(), "name", key.Name, "error", err)
}

// settleQuota records how many candidates the quota turned away.
func (p *pass) settleQuota(tr *TypeReport, quota *QuotaEnforcer) {
	tr.Deferred = quota.Deferred()
	if tr.Deferred > 0 {
		p.logger.Info("quota reached, deferring to next pass",
			"type", tr.Type.String(),
			"candidates", quota.Current(),
			"limit", quota.Limit(),
			"deferred", tr.Deferred,
		)
	}
}

// postpone skips a resource type whose provider is unavailable. Its saved
// keys are carried forward untouched.
func (p *pass) postpone(tr *TypeReport) []record.Key {
	tr.Postponed = true
	p.wantAnotherPass = true
	p.logger.Info("resource provider unavailable, postponing export", "type", tr.Type.String())
	return p.priorKeys(tr.Type)
}
