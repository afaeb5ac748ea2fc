package browser

// stealthJS 在每个新文档创建时注入,抹掉Headless Chrome的自动化特征
// 覆盖面: webdriver标记、插件列表、语言、chrome.runtime、
// permissions.query、窗口外尺寸、iframe的contentWindow
const stealthJS = `
// 1. 屏蔽 webdriver
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });

// 2. 伪造 plugins (正常浏览器至少有几个)
Object.defineProperty(navigator, 'plugins', {
    get: () => [
        { name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer', description: 'Portable Document Format' },
        { name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai', description: '' },
        { name: 'Native Client', filename: 'internal-nacl-plugin', description: '' }
    ]
});

// 3. 伪造 languages
Object.defineProperty(navigator, 'languages', { get: () => ['en-GB', 'en-US', 'en'] });
Object.defineProperty(navigator, 'language', { get: () => 'en-GB' });

// 4. 屏蔽 chrome.runtime (Headless Chrome 特征)
if (window.chrome) {
    window.chrome.runtime = undefined;
}

// 5. 伪造 permissions (正常浏览器有 query 方法)
const originalQuery = window.navigator.permissions.query;
window.navigator.permissions.query = (parameters) => (
    parameters.name === 'notifications' ?
        Promise.resolve({ state: Notification.permission }) :
        originalQuery(parameters)
);

// 6. 隐藏 Headless 特征 (window.outerWidth/outerHeight)
Object.defineProperty(window, 'outerWidth', { get: () => window.innerWidth });
Object.defineProperty(window, 'outerHeight', { get: () => window.innerHeight + 85 });

// 7. 给 HTMLIFrameElement 打补丁 (防止通过 iframe 检测)
const iframeProto = HTMLIFrameElement.prototype;
const origContentWindow = Object.getOwnPropertyDescriptor(iframeProto, 'contentWindow');
if (origContentWindow) {
    Object.defineProperty(iframeProto, 'contentWindow', {
        get: function() {
            const iframe = origContentWindow.get.call(this);
            if (iframe) {
                try { Object.defineProperty(iframe.navigator, 'webdriver', { get: () => undefined }); } catch(e) {}
            }
            return iframe;
        }
    });
}
`
