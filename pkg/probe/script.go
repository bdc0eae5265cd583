// pkg/probe/script.go
package probe

// inventoryScript enumerates interactive elements and generates candidate
// selectors for each, preferring stable attributes (test ids, ids, names,
// aria labels) over brittle class chains. Map widgets are detected by the
// container classes the common embed libraries leave behind.
const inventoryScript = `(() => {
	const result = [];

	const generateSelectors = (el) => {
		const tag = el.tagName.toLowerCase();
		const selectors = [];

		const qaAttrs = ['data-test-id', 'data-testid', 'data-test', 'data-qa', 'data-cy'];
		for (const attr of qaAttrs) {
			const val = el.getAttribute(attr);
			if (val) {
				selectors.push(tag + '[' + attr + '="' + val + '"]');
				break;
			}
		}

		if (el.id && /^[a-zA-Z]/.test(el.id) && !el.id.includes(' ')) {
			selectors.push('#' + CSS.escape(el.id));
		}

		if (el.name && ['input', 'select', 'textarea', 'button'].includes(tag)) {
			selectors.push(tag + '[name="' + el.name + '"]');
		}

		const ariaLabel = el.getAttribute('aria-label');
		if (ariaLabel && ariaLabel.length < 80) {
			selectors.push(tag + '[aria-label="' + ariaLabel + '"]');
		}

		if (tag === 'input' && el.type) {
			if (el.placeholder) {
				selectors.push('input[type="' + el.type + '"][placeholder="' + el.placeholder + '"]');
			}
			if (el.type === 'radio' && el.name && el.value) {
				selectors.push('input[type="radio"][name="' + el.name + '"][value="' + el.value + '"]');
			}
		}

		if (el.className && typeof el.className === 'string') {
			const classes = el.className.split(/\s+/)
				.filter(c => c && !/^[0-9]/.test(c) && c.length < 40 && !/^[a-f0-9]{8,}$/.test(c))
				.slice(0, 2);
			if (classes.length > 0) {
				selectors.push(tag + '.' + classes.join('.'));
			}
		}

		if (tag === 'a' && el.getAttribute('href')) {
			const href = el.getAttribute('href');
			if (href.length < 120 && !href.startsWith('javascript:')) {
				selectors.push('a[href="' + href + '"]');
			}
		}

		return selectors;
	};

	const isVisible = (el) => {
		const r = el.getBoundingClientRect();
		return r.width > 0 && r.height > 0;
	};

	const push = (el) => {
		const tag = el.tagName.toLowerCase();
		const entry = {
			tag: tag,
			type: (el.type || '').toLowerCase(),
			text: (el.textContent || el.value || '').trim().slice(0, 120),
			id: el.id || '',
			name: el.name || '',
			aria_label: el.getAttribute('aria-label') || '',
			placeholder: el.placeholder || '',
			role: el.getAttribute('role') || '',
			href: tag === 'a' ? (el.getAttribute('href') || '') : '',
			visible: isVisible(el),
			selectors: generateSelectors(el),
		};
		if (tag === 'select') {
			entry.options = Array.from(el.options).map(o => (o.textContent || '').trim()).slice(0, 50);
		}
		if (tag === 'input' && el.type === 'radio') {
			entry.group = el.name || '';
			entry.checked = el.checked;
		}
		if (tag === 'input' && el.type === 'checkbox') {
			entry.checked = el.checked;
		}
		result.push(entry);
	};

	document.querySelectorAll('a, button, input, select, textarea, iframe, [role="button"]')
		.forEach(push);

	// Map containers: the widget itself is a div/canvas soup, so detect by
	// the classes Leaflet/Esri/Google/Mapbox leave on the container.
	const mapSelectors = '.leaflet-container, .esri-view, .mapboxgl-map, .gm-style, [class*="map-container"], div[id*="map"]';
	document.querySelectorAll(mapSelectors).forEach(el => {
		result.push({
			tag: el.tagName.toLowerCase() === 'canvas' ? 'canvas' : 'div',
			type: 'map',
			text: '',
			id: el.id || '',
			name: '',
			aria_label: el.getAttribute('aria-label') || '',
			placeholder: '',
			role: el.getAttribute('role') || '',
			href: '',
			visible: isVisible(el),
			selectors: generateSelectors(el),
		});
	});

	return result;
})()`
